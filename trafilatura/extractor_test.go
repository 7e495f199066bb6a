package trafilatura_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	para := strings.Repeat("Our release notes describe every change shipped in this version of the product. ", 3)

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := trafilatura.NewExtractor().Extract("")

		require.Error(t, err)
		assert.Equal(t, whatchanged.EINVALID, whatchanged.ErrorCode(err))
	})

	t.Run("extracts title from meta tags", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<head>
<title>Release Notes - Example</title>
<meta property="og:title" content="Release Notes">
</head>
<body>
<main>
<h1>Release Notes</h1>
<p>` + para + `</p>
</main>
</body>
</html>`

		result, err := trafilatura.NewExtractor().Extract(html)

		require.NoError(t, err)
		assert.NotEmpty(t, result.Title)
	})

	t.Run("extracts main content without boilerplate", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<head><title>Pricing</title></head>
<body>
<nav class="main-nav"><a href="/">Home</a><a href="/pricing">Pricing</a></nav>
<article>
<h1>Pricing</h1>
<p>` + para + `</p>
<p>The team plan now costs $20 per seat each month.</p>
</article>
<footer><p>Copyright 2024 Example Corp</p></footer>
</body>
</html>`

		result, err := trafilatura.NewExtractor().Extract(html)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "$20 per seat")
		assert.NotContains(t, result.ContentHTML, "main-nav")
		assert.NotContains(t, result.ContentHTML, "Copyright 2024 Example Corp")
	})
}
