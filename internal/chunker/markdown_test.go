package chunker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkdownToText(t *testing.T) {
	md := `# Quarterly Report

This is the *summary* paragraph with a [link](https://example.com/report).

## Details

- first item
- second item

` + "```go\nfunc main() {}\n```" + `

Final paragraph.`

	plain := Normalize(MarkdownToText(md))

	require.NotContains(t, plain, "#")
	require.NotContains(t, plain, "*")
	require.NotContains(t, plain, "](")
	require.NotContains(t, plain, "```")

	require.Contains(t, plain, "Quarterly Report")
	require.Contains(t, plain, "summary")
	require.Contains(t, plain, "link")
	require.Contains(t, plain, "first item")
	require.Contains(t, plain, "second item")
	require.Contains(t, plain, "func main() {}")
	require.Contains(t, plain, "Final paragraph.")
}

func TestMarkdownToTextPreservesBlockOrder(t *testing.T) {
	md := "# Alpha\n\nbeta\n\n## Gamma\n\ndelta"
	plain := Normalize(MarkdownToText(md))
	require.Equal(t, "Alpha beta Gamma delta", plain)
}

func TestMarkdownToTextEmpty(t *testing.T) {
	require.Equal(t, "", MarkdownToText(""))
	require.Equal(t, "", MarkdownToText("\n\n"))
}
