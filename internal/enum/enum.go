package enum

// ── Group A: Order lifecycle ──
//
// The POS and kitchen screens speak the UI vocabulary. The orders table
// stores the storage vocabulary (CHECK constrained in DB).

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	DBStatusPending   = "pending"
	DBStatusPaid      = "paid"
	DBStatusPreparing = "preparing"
	DBStatusReady     = "ready"
	DBStatusDelivered = "delivered"
	DBStatusCancelled = "cancelled"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// ── Group B: Order type ──

const (
	OrderTypeDineIn   = "dine-in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

const (
	DBOrderTypeDineIn   = "dine_in"
	DBOrderTypePickup   = "pickup"
	DBOrderTypeDelivery = "delivery"
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash        = "cash"
	PaymentMethodCard        = "card"
	PaymentMethodMobileMoney = "mobile_money"
)

const (
	ChannelPOS = "pos"
)

const (
	RoleCashier = "CASHIER"
	RoleKitchen = "KITCHEN"
)

// PhonePlaceholder is stored when a cash customer gives no phone number.
const PhonePlaceholder = "N/A"

var uiToStorageStatus = map[string]string{
	StatusPending:   DBStatusPending,
	StatusConfirmed: DBStatusPaid,
	StatusPreparing: DBStatusPreparing,
	StatusReady:     DBStatusReady,
	StatusCompleted: DBStatusDelivered,
	StatusCancelled: DBStatusCancelled,
}

var storageToUIStatus = func() map[string]string {
	m := make(map[string]string, len(uiToStorageStatus))
	for ui, db := range uiToStorageStatus {
		m[db] = ui
	}
	return m
}()

// ToStorageStatus maps a UI status to the value persisted in orders.status.
func ToStorageStatus(ui string) (string, bool) {
	s, ok := uiToStorageStatus[ui]
	return s, ok
}

// ToUIStatus maps a persisted orders.status value back to the UI vocabulary.
func ToUIStatus(db string) (string, bool) {
	s, ok := storageToUIStatus[db]
	return s, ok
}

// ToStorageOrderType maps the UI order type to orders.delivery_type.
// Unrecognized input is stored as pickup.
func ToStorageOrderType(ui string) string {
	switch ui {
	case OrderTypeDineIn:
		return DBOrderTypeDineIn
	case OrderTypeTakeaway:
		return DBOrderTypePickup
	case OrderTypeDelivery:
		return DBOrderTypeDelivery
	}
	return DBOrderTypePickup
}

// ToUIOrderType is the inverse of ToStorageOrderType.
func ToUIOrderType(db string) string {
	switch db {
	case DBOrderTypeDineIn:
		return OrderTypeDineIn
	case DBOrderTypeDelivery:
		return OrderTypeDelivery
	}
	return OrderTypeTakeaway
}

// IsValidPaymentStatus reports whether s is a known payment status.
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}
