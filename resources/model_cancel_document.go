/*
 * GENERATED. Do not modify. Your changes might be overwritten!
 */

package resources

type CancelDocument struct {
	Key
	Attributes CancelDocumentAttributes `json:"attributes"`
}

type CancelDocumentRequest struct {
	Data CancelDocument `json:"data"`
}

type CancelDocumentAttributes struct {
	// Free-text reason, at least 15 characters
	Justification string `json:"justification"`
}
