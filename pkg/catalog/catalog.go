// Package catalog holds the static registry mapping a workflow variant
// to its ordered step sequence. The catalog is process-wide immutable
// configuration built once at startup; an unknown variant is a
// configuration error surfaced when a workflow is started, never mid-run.
package catalog

import (
	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

// ErrUnknownVariant is returned when no step sequence is registered for
// the requested variant.
var ErrUnknownVariant = errors.New("unknown workflow variant")

// StepDefinition is the fixed identity of one step in a variant's sequence.
type StepDefinition struct {
	ID         string
	Name       string
	MaxRetries int
}

// Catalog maps variant names to ordered step definitions.
type Catalog struct {
	variants map[string][]StepDefinition
}

func New() *Catalog {
	return &Catalog{variants: make(map[string][]StepDefinition)}
}

// Register adds a variant. Registration happens at startup only; the
// engine never mutates the catalog.
func (c *Catalog) Register(variant string, steps []StepDefinition) error {
	if variant == "" {
		return errors.New("empty variant name")
	}
	if len(steps) == 0 {
		return errors.Errorf("variant '%s' has no steps", variant)
	}
	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if s.ID == "" {
			return errors.Errorf("variant '%s' has a step with an empty id", variant)
		}
		if _, dup := seen[s.ID]; dup {
			return errors.Errorf("variant '%s' registers step '%s' twice", variant, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	c.variants[variant] = append([]StepDefinition(nil), steps...)
	return nil
}

// Steps returns a copy of the step definitions for a variant.
func (c *Catalog) Steps(variant string) ([]StepDefinition, error) {
	defs, ok := c.variants[variant]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownVariant, "variant '%s'", variant)
	}
	return append([]StepDefinition(nil), defs...), nil
}

// Variants lists the registered variant names.
func (c *Catalog) Variants() []string {
	names := make([]string, 0, len(c.variants))
	for name := range c.variants {
		names = append(names, name)
	}
	return names
}

// BuildSteps materializes fresh workflow step records for a variant,
// all pending, in catalog order.
func (c *Catalog) BuildSteps(variant string) ([]models.WorkflowStep, error) {
	defs, err := c.Steps(variant)
	if err != nil {
		return nil, err
	}
	steps := make([]models.WorkflowStep, len(defs))
	for i, def := range defs {
		steps[i] = models.WorkflowStep{
			ID:         def.ID,
			Name:       def.Name,
			Status:     models.PendingStepStatus,
			MaxRetries: def.MaxRetries,
		}
	}
	return steps, nil
}

// Step ids shared by the built-in variants.
const (
	StepOrderValidation        = "order-validation"
	StepPaymentProcessing      = "payment-processing"
	StepInventoryAllocation    = "inventory-allocation"
	StepVendorNotification     = "vendor-notification"
	StepFulfillmentPreparation = "fulfillment-preparation"
	StepShippingArrangement    = "shipping-arrangement"
	StepExpressShipping        = "express-shipping"
	StepCustomerNotification   = "customer-notification"
)

const DefaultMaxRetries = 3

// Default returns the catalog with the built-in order-processing
// variants: "standard" (full seven-stage sequence) and "express"
// (expedited five-stage sequence).
func Default() *Catalog {
	c := New()
	// Register only fails on malformed definitions; the built-ins are constants.
	_ = c.Register("standard", []StepDefinition{
		{ID: StepOrderValidation, Name: "Order Validation", MaxRetries: DefaultMaxRetries},
		{ID: StepPaymentProcessing, Name: "Payment Processing", MaxRetries: DefaultMaxRetries},
		{ID: StepInventoryAllocation, Name: "Inventory Allocation", MaxRetries: DefaultMaxRetries},
		{ID: StepVendorNotification, Name: "Vendor Notification", MaxRetries: DefaultMaxRetries},
		{ID: StepFulfillmentPreparation, Name: "Fulfillment Preparation", MaxRetries: DefaultMaxRetries},
		{ID: StepShippingArrangement, Name: "Shipping Arrangement", MaxRetries: DefaultMaxRetries},
		{ID: StepCustomerNotification, Name: "Customer Notification", MaxRetries: DefaultMaxRetries},
	})
	_ = c.Register("express", []StepDefinition{
		{ID: StepOrderValidation, Name: "Order Validation", MaxRetries: DefaultMaxRetries},
		{ID: StepPaymentProcessing, Name: "Payment Processing", MaxRetries: DefaultMaxRetries},
		{ID: StepInventoryAllocation, Name: "Inventory Allocation", MaxRetries: DefaultMaxRetries},
		{ID: StepExpressShipping, Name: "Express Shipping", MaxRetries: DefaultMaxRetries},
		{ID: StepCustomerNotification, Name: "Customer Notification", MaxRetries: DefaultMaxRetries},
	})
	return c
}
