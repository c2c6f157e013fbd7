// Command onemin turns short videos dropped into a folder into YouTube
// uploads: it analyzes each file, drafts metadata with an LLM, renders a
// thumbnail, and either uploads immediately or parks an approval request
// that the operator resolves with `onemin approve` or `onemin reject`.
package main
