/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import "encoding/json"

// Encoder serializes a document into a request body.
type Encoder interface {
	Encode(doc *Document) ([]byte, error)
}

// EncoderFunc is an adapter to allow the use of ordinary functions as Encoder.
type EncoderFunc func(doc *Document) ([]byte, error)

// Encode implements Encoder.
func (f EncoderFunc) Encode(doc *Document) ([]byte, error) {
	return f(doc)
}

// JSONEncoder encodes documents as JSON using the wire field names.
type JSONEncoder struct{}

// Encode implements Encoder.
func (JSONEncoder) Encode(doc *Document) ([]byte, error) {
	return json.Marshal(doc)
}
