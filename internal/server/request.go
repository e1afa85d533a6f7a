package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Ads97/Veritas/internal/model"
)

// decodeSubject reads a request body of the form
//
//	{"name": ..., "address": ..., "listing_url": ..., "other_details": ..., "listed_rent": ...}
//
// Keys other than the four subject fields land in Subject.Extra.
func decodeSubject(body io.Reader) (model.Subject, error) {
	var raw map[string]any
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Subject{}, errors.New("no JSON data provided in request")
		}
		return model.Subject{}, fmt.Errorf("invalid JSON body: %w", err)
	}

	var s model.Subject
	for key, value := range raw {
		if value == nil {
			continue
		}
		text := stringify(value)
		switch key {
		case "name":
			s.Name = text
		case "address":
			s.Address = text
		case "listing_url":
			s.ListingURL = text
		case "other_details":
			s.OtherDetails = text
		case "extra":
			nested, ok := value.(map[string]any)
			if !ok {
				return model.Subject{}, errors.New("extra must be an object")
			}
			for k, v := range nested {
				if v != nil {
					s.Extra = setExtra(s.Extra, k, stringify(v))
				}
			}
		default:
			s.Extra = setExtra(s.Extra, key, text)
		}
	}
	return s, nil
}

func setExtra(extra map[string]string, key, value string) map[string]string {
	if extra == nil {
		extra = make(map[string]string)
	}
	extra[key] = value
	return extra
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
