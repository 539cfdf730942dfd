package models

// DocumentKind distinguishes the two monetary document tables that share the
// same lifecycle (expenses accumulate paid_amount, incomes collected_amount).
type DocumentKind string

const (
	DocumentKindExpense DocumentKind = "EX"
	DocumentKindIncome  DocumentKind = "IN"
)

type DocumentStatus string

const (
	DocumentStatusDraft       DocumentStatus = "Draft"
	DocumentStatusRegistered  DocumentStatus = "Registered"
	DocumentStatusConfirmed   DocumentStatus = "Confirmed"
	DocumentStatusPartialPaid DocumentStatus = "Partial Paid"
	DocumentStatusPaid        DocumentStatus = "Paid"
	DocumentStatusCancelled   DocumentStatus = "Cancelled"
)

// IsTerminal reports whether no further mutation of paid amounts or status is legal.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusPaid || s == DocumentStatusCancelled
}

// CanReceivePayment reports whether a partial payment/collection is legal now.
// Drafts must be confirmed first.
func (s DocumentStatus) CanReceivePayment() bool {
	return s == DocumentStatusConfirmed || s == DocumentStatusPartialPaid
}

func (s DocumentStatus) CanConfirm() bool {
	return s == DocumentStatusDraft || s == DocumentStatusRegistered
}

type PaymentTermsCode string

const (
	PaymentTermsContado  PaymentTermsCode = "contado"
	PaymentTerms30Dias   PaymentTermsCode = "30_dias"
	PaymentTerms60Dias   PaymentTermsCode = "60_dias"
	PaymentTerms90Dias   PaymentTermsCode = "90_dias"
	PaymentTerms5050     PaymentTermsCode = "50_50"
	PaymentTerms333334   PaymentTermsCode = "33_33_34"
	PaymentTerms25x4     PaymentTermsCode = "25_25_25_25"
	PaymentTerms4060     PaymentTermsCode = "40_60"
)

type PaymentOrderStatus string

const (
	PaymentOrderStatusDraft     PaymentOrderStatus = "Draft"
	PaymentOrderStatusApproved  PaymentOrderStatus = "Approved"
	PaymentOrderStatusExecuted  PaymentOrderStatus = "Executed"
	PaymentOrderStatusCancelled PaymentOrderStatus = "Cancelled"
)

func (s PaymentOrderStatus) IsTerminal() bool {
	return s == PaymentOrderStatusExecuted || s == PaymentOrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCheck    PaymentMethod = "check"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodOther    PaymentMethod = "other"
)

type FinancialAccountType string

const (
	FinancialAccountTypeCash FinancialAccountType = "cash"
	FinancialAccountTypeBank FinancialAccountType = "bank"
	FinancialAccountTypeCard FinancialAccountType = "card"
)

type AlertStatus string

const (
	AlertStatusPending   AlertStatus = "Pending"
	AlertStatusResolved  AlertStatus = "Resolved"
	AlertStatusDismissed AlertStatus = "Dismissed"
)

type AlertPriority string

const (
	AlertPriorityLow    AlertPriority = "low"
	AlertPriorityMedium AlertPriority = "medium"
	AlertPriorityHigh   AlertPriority = "high"
)

// Alert rule names are part of the dedup key and must stay stable.
type AlertRuleName string

const (
	AlertRuleInvoiceOverdue      AlertRuleName = "FACTURA_VENCIDA"
	AlertRuleInvoiceApproaching  AlertRuleName = "FACTURA_PROXIMO_VENCIMIENTO"
	AlertRuleIncomeOverdue       AlertRuleName = "INGRESO_VENCIDO"
	AlertRuleIncomeApproaching   AlertRuleName = "INGRESO_PROXIMO_VENCIMIENTO"
	AlertRuleOrderPending        AlertRuleName = "ORDEN_PAGO_PENDIENTE"
	AlertRuleOrderPendingPayment AlertRuleName = "ORDEN_PAGO_PENDIENTE_PAGO"
)

// LedgerReferenceType tags outbox events with the posting that produced them.
type LedgerReferenceType string

const (
	LedgerRefExpensePayment    LedgerReferenceType = "EP"
	LedgerRefIncomeCollection  LedgerReferenceType = "IC"
	LedgerRefPaymentOrder      LedgerReferenceType = "PO"
	LedgerRefAccountAdjustment LedgerReferenceType = "AA"
	LedgerRefAlert             LedgerReferenceType = "AL"
)

type LedgerEventAction string

const (
	LedgerEventActionCreate LedgerEventAction = "C"
	LedgerEventActionUpdate LedgerEventAction = "U"
	LedgerEventActionDelete LedgerEventAction = "D"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusConfirmed PurchaseOrderStatus = "Confirmed"
	PurchaseOrderStatusClosed    PurchaseOrderStatus = "Closed"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "Cancelled"
)
