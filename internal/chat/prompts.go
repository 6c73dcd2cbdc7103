package chat

import (
	"fmt"
	"strings"

	"github.com/docuchat/backend/internal/history"
	"github.com/docuchat/backend/internal/retrieval"
)

func renderCondensePrompt(question string, turns []history.Turn) string {
	var b strings.Builder

	b.WriteString("Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.\n\n")
	b.WriteString("Chat history:\n")
	writeHistory(&b, turns)
	fmt.Fprintf(&b, "Follow Up Question: %s\n", question)
	b.WriteString("Standalone question:")

	return b.String()
}

func renderAnswerPrompt(question string, docs []retrieval.Document, turns []history.Turn) string {
	var b strings.Builder

	b.WriteString("Use the following context and chat history to answer the user's question.\n")
	b.WriteString("Each passage has a NAME which is the title of the document. After your answer, leave a blank line and then give the source name of the context you answered from. Put them in a comma separated list, prefixed with SOURCES:.\n\n")
	fmt.Fprintf(&b, "User question: %s\n\n", question)
	b.WriteString("----\n\n")

	for _, doc := range docs {
		b.WriteString("---\n")
		fmt.Fprintf(&b, "NAME: %s\n", doc.DisplayName())
		fmt.Fprintf(&b, "PASSAGE:\n%s\n", doc.Content)
		b.WriteString("---\n\n")
	}

	b.WriteString("----\n")
	b.WriteString("Chat history:\n")
	writeHistory(&b, turns)
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	b.WriteString("Response:")

	return b.String()
}

func writeHistory(b *strings.Builder, turns []history.Turn) {
	for _, turn := range turns {
		switch turn.Role {
		case history.RoleHuman:
			fmt.Fprintf(b, "Question: %s\n", turn.Content)
		case history.RoleAI:
			fmt.Fprintf(b, "Response: %s\n", turn.Content)
		}
	}
}
