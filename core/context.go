package core

const (
	VPKIContextKeyRequestID string = "vpki.io/ctx/request-id"
	VPKIContextKeySource    string = "vpki.io/ctx/source"
	VPKIContextKeyNodeID    string = "vpki.io/ctx/node-id"

	VPKIContextKeyEventType    string = "vpki.io/ctx/cloudevent/type"
	VPKIContextKeyEventSubject string = "vpki.io/ctx/cloudevent/subject"
)
