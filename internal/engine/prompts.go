package engine

import "fmt"

// answerPrompt is the first synthesis call: answer from the top chunk alone.
const answerPromptFormat = `Context information is below.
---------------------
%s
---------------------
Given the context information and no prior knowledge, answer the question: %s
`

// refinePrompt folds one more retrieved chunk into an existing answer. The
// instruction asks for a rewrite, not an append, so repeated content in the
// final answer is a model artifact rather than a prompt artifact.
const refinePromptFormat = `The original question is as follows: %s
We have provided an existing answer: %s
We have the opportunity to refine the existing answer with more context below.
---------------------
%s
---------------------
Given the new context, refine the original answer. If the context is not useful, return the existing answer.
`

func answerPrompt(contextText, question string) string {
	return fmt.Sprintf(answerPromptFormat, contextText, question)
}

func refinePrompt(question, existingAnswer, contextText string) string {
	return fmt.Sprintf(refinePromptFormat, question, existingAnswer, contextText)
}
