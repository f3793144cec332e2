package configstore

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="utf-8" ?>`
	xmlRoot   = "config"
)

// decodeXML flattens an XML document into the store. The root element is
// dropped; every leaf element becomes a key built from its ancestors.
// Repeated leaf elements add values to the same key.
func decodeXML(r io.Reader, s *Store) error {
	dec := xml.NewDecoder(r)
	var path []string
	var text strings.Builder
	hasChild := []bool{}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to parse xml settings: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(hasChild) > 0 {
				hasChild[len(hasChild)-1] = true
			}
			path = append(path, t.Name.Local)
			hasChild = append(hasChild, false)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(path) == 0 {
				return fmt.Errorf("failed to parse xml settings: unbalanced element %q", t.Name.Local)
			}
			leaf := !hasChild[len(hasChild)-1]
			if leaf && len(path) > 1 {
				s.AddString(strings.Join(path[1:], Separator), strings.TrimSpace(text.String()))
			}
			path = path[:len(path)-1]
			hasChild = hasChild[:len(hasChild)-1]
			text.Reset()
		}
	}
	if len(path) != 0 {
		return fmt.Errorf("failed to parse xml settings: unexpected end of document")
	}
	return nil
}

// encodeXML writes the store as nested elements below a <config> root,
// indented with tabs. Keys sharing a prefix are grouped under one parent in
// order of first appearance.
func encodeXML(w io.Writer, s *Store) error {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("\n<" + xmlRoot + ">\n")
	if err := writeXMLLevel(&buf, s, "", 1); err != nil {
		return err
	}
	buf.WriteString("</" + xmlRoot + ">\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func writeXMLLevel(buf *bytes.Buffer, s *Store, prefix string, depth int) error {
	indent := strings.Repeat("\t", depth)
	for _, key := range s.SublevelKeys(prefix) {
		name := key[strings.LastIndex(key, Separator)+1:]
		if !validElementName(name) {
			return fmt.Errorf("invalid settings key segment %q in %q", name, key)
		}
		if vals, ok := s.values[key]; ok {
			for _, v := range vals {
				buf.WriteString(indent + "<" + name + ">")
				if err := xml.EscapeText(buf, []byte(v)); err != nil {
					return err
				}
				buf.WriteString("</" + name + ">\n")
			}
		}
		if len(s.SublevelKeys(key)) == 0 {
			continue
		}
		buf.WriteString(indent + "<" + name + ">\n")
		if err := writeXMLLevel(buf, s, key, depth+1); err != nil {
			return err
		}
		buf.WriteString(indent + "</" + name + ">\n")
	}
	return nil
}

func validElementName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}
