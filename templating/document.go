package templating

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

func parseDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.New("document has no root element")
	}

	// Only the characters XML requires are escaped so untouched text
	// round-trips byte for byte.
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	return doc, nil
}

// serialize writes doc without its XML declaration, on a single line.
func serialize(doc *etree.Document) ([]byte, error) {
	for _, tok := range append([]etree.Token(nil), doc.Child...) {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			doc.RemoveChild(pi)
		}
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	out = bytes.ReplaceAll(out, []byte("\r"), nil)
	out = bytes.ReplaceAll(out, []byte("\n"), nil)
	return out, nil
}

// setTextContent replaces every child of el with a single text node.
func setTextContent(el *etree.Element, text string) {
	for len(el.Child) > 0 {
		el.RemoveChildAt(0)
	}
	el.SetText(text)
}
