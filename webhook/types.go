package webhook

// Event types delivered by billing-style webhook providers. Register
// handlers against these constants instead of raw strings so typos
// fail review rather than production.
const (
	EventCustomerCreated = "customer.created"
	EventCustomerUpdated = "customer.updated"
	EventCustomerDeleted = "customer.deleted"

	EventCustomerSubscriptionCreated  = "customer.subscription.created"
	EventCustomerSubscriptionUpdated  = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted  = "customer.subscription.deleted"
	EventCustomerSubscriptionPaused   = "customer.subscription.paused"
	EventCustomerSubscriptionResumed  = "customer.subscription.resumed"
	EventCustomerSubscriptionTrialEnd = "customer.subscription.trial_will_end"

	EventInvoiceCreated       = "invoice.created"
	EventInvoiceFinalized     = "invoice.finalized"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventInvoiceUpcoming      = "invoice.upcoming"
	EventInvoiceVoided        = "invoice.voided"

	EventPaymentIntentCreated       = "payment_intent.created"
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentFailed        = "payment_intent.payment_failed"
	EventPaymentIntentCanceled      = "payment_intent.canceled"
	EventPaymentIntentActionNeeded  = "payment_intent.requires_action"
	EventPaymentIntentAmountCapture = "payment_intent.amount_capturable_updated"

	EventChargeSucceeded     = "charge.succeeded"
	EventChargeFailed        = "charge.failed"
	EventChargeRefunded      = "charge.refunded"
	EventChargeDisputeOpened = "charge.dispute.created"
	EventChargeDisputeClosed = "charge.dispute.closed"

	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventCheckoutSessionExpired   = "checkout.session.expired"

	EventPayoutCreated = "payout.created"
	EventPayoutPaid    = "payout.paid"
	EventPayoutFailed  = "payout.failed"
)
