package dto

import "github.com/noah-isme/gradsmart-api/pkg/jsondoc"

// DeviceTokenRequest registers a push token for the caller.
type DeviceTokenRequest struct {
	Token      string           `json:"token" validate:"required,max=4096"`
	DeviceInfo jsondoc.Document `json:"deviceInfo"`
}
