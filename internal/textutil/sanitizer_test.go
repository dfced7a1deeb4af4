package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHTML_StripsTagsPreservesParagraphs(t *testing.T) {
	raw := "<p>We build things.</p><p>Join us &amp; grow.</p>"
	got := SanitizeHTML(raw)
	assert.Contains(t, got, "We build things.")
	assert.Contains(t, got, "Join us & grow.")
	assert.NotContains(t, got, "<p>")
}

func TestSanitizeHTML_PreservesListStructure(t *testing.T) {
	raw := "<ul><li>Go</li><li>SQL</li></ul>"
	got := SanitizeHTML(raw)
	assert.Contains(t, got, "- Go")
	assert.Contains(t, got, "- SQL")
}

func TestSanitizeHTML_DropsScriptAndStyle(t *testing.T) {
	raw := "<p>Hello</p><script>alert(1)</script><style>.x{}</style>"
	got := SanitizeHTML(raw)
	assert.Equal(t, "Hello", got)
}

func TestSanitizeText_FoldsSmartPunctuation(t *testing.T) {
	got := SanitizeText("It’s a “great” team—really.")
	assert.Equal(t, "It's a \"great\" team-really.", got)
}

func TestSanitizeHTML_IsIdempotent(t *testing.T) {
	raw := "<p>Smart “quotes” and — dashes.</p>"
	once := SanitizeHTML(raw)
	twice := SanitizeHTML(once)
	assert.Equal(t, once, twice)
}
