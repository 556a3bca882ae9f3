// Command pdfrag answers questions about ingested PDF documents.
package main

import "github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/cli"

func main() {
	cli.Execute()
}
