package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Art. 1 The parties</w:t></w:r><w:r><w:t xml:space="preserve"> agree.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Art. 2</w:t><w:tab/><w:t>Payment terms.</w:t></w:r></w:p>
    <w:p/>
    <w:p><w:r><w:t>Line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildDocx(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "word/document.xml"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const contentTypes = `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`

func TestText_Docx(t *testing.T) {
	data := buildDocx(t, map[string]string{
		"[Content_Types].xml": contentTypes,
		"word/document.xml":   documentXML,
	})

	text, err := Text("Contract.DOCX", data)

	require.NoError(t, err)
	assert.Equal(t, "Art. 1 The parties agree.\nArt. 2\tPayment terms.\n\nLine one\nline two", text)
}

func TestText_DocxWithoutBody(t *testing.T) {
	data := buildDocx(t, map[string]string{"[Content_Types].xml": contentTypes})

	_, err := Text("contract.docx", data)

	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestText_UnsupportedExtension(t *testing.T) {
	for _, name := range []string{"contract.txt", "contract.doc", "contract", "pdf", "contract.pdf.zip"} {
		_, err := Text(name, []byte("hello"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat, name)
		assert.False(t, Supported(name), name)
	}
	assert.True(t, Supported("a.PDF"))
	assert.True(t, Supported("dir/a.docx"))
	assert.NoError(t, CheckExtension("x.Pdf"))
}

func TestText_ContentMismatch(t *testing.T) {
	_, err := Text("contract.pdf", []byte("just some text, no pdf header"))
	assert.ErrorIs(t, err, ErrCorruptDocument)

	_, err = Text("contract.docx", []byte("%PDF-1.4 not a zip"))
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestText_TruncatedPDF(t *testing.T) {
	_, err := Text("contract.pdf", []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\n"))
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestReadParagraphs_IgnoresForeignNamespaces(t *testing.T) {
	xmlDoc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:x="urn:other">
<w:body><w:p><x:t>hidden</x:t><w:r><w:t>visible</w:t></w:r></w:p></w:body></w:document>`

	paragraphs, err := readParagraphs(bytes.NewReader([]byte(xmlDoc)))

	require.NoError(t, err)
	assert.Equal(t, []string{"visible"}, paragraphs)
}

func TestReadParagraphs_TextBoxKeepsOuterParagraph(t *testing.T) {
	xmlDoc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>Art. 3 Before the box</w:t></w:r><w:r><w:pict><w:txbxContent><w:p><w:r><w:t>Boxed note</w:t></w:r></w:p></w:txbxContent></w:pict></w:r><w:r><w:t xml:space="preserve"> and after.</w:t></w:r></w:p></w:body></w:document>`

	paragraphs, err := readParagraphs(bytes.NewReader([]byte(xmlDoc)))

	require.NoError(t, err)
	assert.Equal(t, []string{"Boxed note", "Art. 3 Before the box and after."}, paragraphs)
}
