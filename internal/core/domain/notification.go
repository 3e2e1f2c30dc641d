package domain

// Recipient is the human on the other side of an invoice or salary slip.
// Reference is the key the identity resolver maps to an account.
type Recipient struct {
	Reference string `json:"reference"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// NotificationKind selects the template used by the dispatcher.
type NotificationKind string

const (
	NotificationInvoice    NotificationKind = "INVOICE"
	NotificationReceipt    NotificationKind = "RECEIPT"
	NotificationReminder   NotificationKind = "REMINDER"
	NotificationSalarySlip NotificationKind = "SALARY_SLIP"
)

// Notification is a single message handed to the dispatcher.
type Notification struct {
	Recipient   Recipient        `json:"recipient"`
	Kind        NotificationKind `json:"kind"`
	ReferenceID string           `json:"referenceID"` // invoice or payroll entry id
	Payload     map[string]any   `json:"payload"`
}

// DeliveryStatus tags the dispatcher's answer. Only DELIVERED counts as an acknowledgment.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryRejected  DeliveryStatus = "REJECTED"
	DeliveryFailed    DeliveryStatus = "FAILED"
	// DeliverySkipped is used when no dispatch was attempted.
	DeliverySkipped DeliveryStatus = "SKIPPED"
)

// DeliveryResult is the dispatcher's reply for one notification.
type DeliveryResult struct {
	Status    DeliveryStatus `json:"status"`
	MessageID string         `json:"messageID,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// Delivered reports a positive acknowledgment.
func (r DeliveryResult) Delivered() bool {
	return r.Status == DeliveryDelivered
}
