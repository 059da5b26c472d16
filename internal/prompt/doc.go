// Package prompt renders the task prompts sent to the completion service.
//
// Each task kind has a text/template that receives the numbered cards of a
// window (and, for tag suggestion, the topic list). The numbering in the
// prompt is the contract the reply parser relies on: card i of the window is
// introduced as "Question i" and the model is asked to answer in blocks with
// the same headings.
package prompt
