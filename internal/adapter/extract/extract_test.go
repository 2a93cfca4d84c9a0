package extract

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertalk/internal/domain"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error

	name  string
	args  []string
	stdin []byte
}

func (m *mockRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	m.stdin, m.name, m.args = stdin, name, args
	return m.output, m.err
}

func TestExtract_Text(t *testing.T) {
	e := New(&mockRunner{})

	text, err := e.Extract(context.Background(), "notes.TXT", []byte("\ufeffline one\r\nline two\xff"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)
}

func TestExtract_PDF(t *testing.T) {
	runner := &mockRunner{output: []byte("Page one text\fPage two text\f")}
	e := New(runner)

	pdf := []byte("%PDF-1.7 fake body")
	text, err := e.Extract(context.Background(), "paper.pdf", pdf)
	require.NoError(t, err)

	assert.Equal(t, "Page one text\nPage two text", text)
	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, []string{"-layout", "-", "-"}, runner.args)
	assert.Equal(t, pdf, runner.stdin)
}

func TestExtract_PDFRunnerFails(t *testing.T) {
	e := New(&mockRunner{err: errors.New("Syntax Error: Couldn't find trailer dictionary")})

	_, err := e.Extract(context.Background(), "broken.pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_PDFToolMissing(t *testing.T) {
	e := New(&mockRunner{err: exec.ErrNotFound})

	_, err := e.Extract(context.Background(), "paper.pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "poppler")
}

func TestExtract_NotAPDF(t *testing.T) {
	runner := &mockRunner{}
	e := New(runner)

	_, err := e.Extract(context.Background(), "fake.pdf", []byte("hello"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Empty(t, runner.name, "runner must not be called")
}

func TestExtract_Empty(t *testing.T) {
	e := New(&mockRunner{output: []byte("\f  \f")})

	_, err := e.Extract(context.Background(), "blank.txt", []byte("   \n"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)

	_, err = e.Extract(context.Background(), "scanned.pdf", []byte("%PDF-1.5"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_Unsupported(t *testing.T) {
	e := New(nil)

	for _, name := range []string{"report.docx", "README", "image.png"} {
		_, err := e.Extract(context.Background(), name, []byte("data"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedFileType, name)
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.pdf"))
	assert.True(t, Supported("dir/B.TXT"))
	assert.False(t, Supported("c.md"))
}
