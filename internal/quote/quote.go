// Package quote handles quote-request intake for the marketing site: field
// validation, content screening of free-text fields, reference numbers, and
// persistence through the Store seam.
package quote

import (
	"crypto/rand"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Quote is one submitted quote request.
type Quote struct {
	ID               int64
	ReferenceNumber  string
	Name             string
	Email            string
	Phone            string
	Company          string
	CommodityType    string
	Quantity         string
	Unit             string
	DeliveryTimeline string
	Notes            string
	Status           string
	CreatedAt        time.Time
}

// StatusNew is the status assigned to every fresh submission.
const StatusNew = "new"

// Submission carries the raw form fields.
type Submission struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Company          string `json:"company"`
	CommodityType    string `json:"commodityType"`
	Quantity         string `json:"quantity"`
	Unit             string `json:"unit"`
	DeliveryTimeline string `json:"deliveryTimeline"`
	Notes            string `json:"notes"`
}

// FieldErrors maps field names to human-readable problems.
type FieldErrors map[string]string

// ValidateShape checks required fields and formats. Content screening is
// separate; see Handler.
func (s Submission) ValidateShape() FieldErrors {
	errs := FieldErrors{}

	if len(strings.TrimSpace(s.Name)) < 2 {
		errs["name"] = "Name must be at least 2 characters"
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		errs["email"] = "Invalid email address"
	}
	if len(strings.TrimSpace(s.Phone)) < 10 {
		errs["phone"] = "Phone must be at least 10 characters"
	}
	if strings.TrimSpace(s.CommodityType) == "" {
		errs["commodityType"] = "Please select a commodity type"
	}
	if strings.TrimSpace(s.Quantity) == "" {
		errs["quantity"] = "Quantity is required"
	}
	if strings.TrimSpace(s.Unit) == "" {
		errs["unit"] = "Unit is required"
	}
	if strings.TrimSpace(s.DeliveryTimeline) == "" {
		errs["deliveryTimeline"] = "Delivery timeline is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReferenceNumber builds a customer-facing reference like
// HC-1700000000000-7QK2ZD.
func NewReferenceNumber(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating reference suffix: %w", err)
	}
	suffix := make([]byte, 6)
	for i, b := range buf {
		suffix[i] = referenceCharset[int(b)%len(referenceCharset)]
	}
	return fmt.Sprintf("HC-%d-%s", now.UnixMilli(), suffix), nil
}
