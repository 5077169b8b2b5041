// Package docqa answers questions about uploaded documents using retrieval
// augmented generation: extract text from PDF or DOCX, chunk it, embed the
// chunks into an in-memory vector index, then answer questions by retrieving
// the most similar chunks and synthesizing a grounded response.
//
// The package embeds the full pipeline in-process; cmd/docqa wraps the same
// pipeline in an HTTP API.
//
//	client, _ := docqa.New(
//	    docqa.WithEmbedder(myEmbedder),
//	    docqa.WithGenerator(myGenerator),
//	)
//	doc, _ := client.Upload(ctx, "report.pdf", content)
//	answer, _ := client.Ask(ctx, doc.ID, "What were the Q3 findings?")
//	fmt.Println(answer.Text, answer.Grounded)
package docqa
