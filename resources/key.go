/*
 * GENERATED. Do not modify. Your changes might be overwritten!
 */

package resources

import "fmt"

type ResourceType string

// List of ResourceType
const (
	CANCEL_DOCUMENT     ResourceType = "cancel-document"
	DIGITAL_CERTIFICATE ResourceType = "digital-certificate"
	EMIT_DOCUMENT       ResourceType = "emit-document"
	FISCAL_DOCUMENT     ResourceType = "fiscal-document"
	UPLOAD_CERTIFICATE  ResourceType = "upload-certificate"
)

type Key struct {
	ID   string       `json:"id"`
	Type ResourceType `json:"type"`
}

func NewKey(id string, resourceType ResourceType) Key {
	return Key{
		ID:   id,
		Type: resourceType,
	}
}

func NewKeyInt64(id int64, resourceType ResourceType) Key {
	return Key{
		ID:   fmt.Sprintf("%d", id),
		Type: resourceType,
	}
}

func (r *Key) GetKey() Key {
	return *r
}
