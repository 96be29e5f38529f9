package engine

// SkipValue consumes the rest of the value that starts at first.
func SkipValue(src TokenSource, first Token) error {
	switch {
	case first.Kind.IsScalar():
		return nil
	case first.Kind != KindBeginObject && first.Kind != KindBeginArray:
		return unexpected(first)
	}
	depth := 1
	for depth > 0 {
		tok, err := next(src)
		if err != nil {
			return err
		}
		switch tok.Kind {
		case KindBeginObject, KindBeginArray:
			depth++
		case KindEndObject, KindEndArray:
			depth--
		}
	}
	return nil
}

// CopyValue forwards the value that starts at first into dst. When rename is
// non-nil every object key passes through it.
func CopyValue(dst Sink, src TokenSource, first Token, rename func(string) string) error {
	switch {
	case first.Kind.IsScalar():
		return dst.WriteToken(first)
	case first.Kind != KindBeginObject && first.Kind != KindBeginArray:
		return unexpected(first)
	}
	if err := dst.WriteToken(first); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		tok, err := next(src)
		if err != nil {
			return err
		}
		switch tok.Kind {
		case KindBeginObject, KindBeginArray:
			depth++
		case KindEndObject, KindEndArray:
			depth--
		case KindKey:
			if rename != nil {
				tok.String = rename(tok.String)
			}
		}
		if err := dst.WriteToken(tok); err != nil {
			return err
		}
	}
	return nil
}

// CaptureRaw renders the value that starts at first as compact JSON.
func CaptureRaw(src TokenSource, first Token) ([]byte, error) {
	w := NewJSONWriter()
	if err := CopyValue(w, src, first, nil); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnexpectedTokenError reports a token that cannot start a value.
type UnexpectedTokenError struct{ Token Token }

func (e UnexpectedTokenError) Error() string {
	return "unexpected " + e.Token.Kind.String() + " token"
}

func unexpected(tok Token) error { return UnexpectedTokenError{Token: tok} }
