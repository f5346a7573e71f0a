package capture

// Write implements io.Writer. It appends a copy of p because exec reuses
// its read buffer between calls.
//
// A nil receiver swallows the write and reports success.
func (b *Buffer) Write(p []byte) (int, error) {
	if b == nil {
		return len(p), nil
	}
	if len(p) == 0 {
		return 0, nil
	}
	cp := append([]byte(nil), p...)
	b.Append(cp)
	return len(p), nil
}
