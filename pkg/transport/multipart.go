package transport

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
)

// File is a file part of a multipart form.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// MultipartBody encodes fields under a root key using bracket notation:
// {"title": "x", "tag_ids": [1, 2]} with root "card" becomes card[title]=x,
// card[tag_ids][]=1, card[tag_ids][]=2. Nil values are skipped; files are
// attached under card[<field>]. The returned content type carries the
// boundary.
func MultipartBody(root string, fields map[string]any, files map[string]File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range sortedKeys(fields) {
		if err := writeField(w, fieldName(root, name), fields[name]); err != nil {
			return nil, "", err
		}
	}

	fileNames := make([]string, 0, len(files))
	for name := range files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	for _, name := range fileNames {
		f := files[name]
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName(root, name), f.Name))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write file part %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func fieldName(root, name string) string {
	if root == "" {
		return name
	}
	return root + "[" + name + "]"
}

func writeField(w *multipart.Writer, name string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		for _, k := range sortedKeys(v) {
			if err := writeField(w, name+"["+k+"]", v[k]); err != nil {
				return err
			}
		}
		return nil
	case []string:
		for _, item := range v {
			if err := w.WriteField(name+"[]", item); err != nil {
				return err
			}
		}
		return nil
	case []int:
		for _, item := range v {
			if err := w.WriteField(name+"[]", strconv.Itoa(item)); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range v {
			s, ok := scalar(item)
			if !ok {
				continue
			}
			if err := w.WriteField(name+"[]", s); err != nil {
				return err
			}
		}
		return nil
	}

	s, ok := scalar(value)
	if !ok {
		return fmt.Errorf("unsupported multipart value for %s: %T", name, value)
	}
	return w.WriteField(name, s)
}

// scalar renders a form value. Booleans become "true"/"false".
func scalar(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
