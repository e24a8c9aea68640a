package help

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNames(t *testing.T) {
	assert.Equal(t, "paymentMethodCase_", CaseField("payment_method"))
	assert.Equal(t, "paymentMethod_", SlotField("payment_method"))
	assert.Equal(t, "CREDIT_CARD", CaseConst("credit_card"))
	assert.Equal(t, "CREDIT_CARD", CaseConst("creditCard"))
	assert.Equal(t, "PAYMENT_METHOD_NOT_SET", NotSetConst("payment_method"))
	assert.Equal(t, "shop/order.plan.json", PlanFileName("shop/order.proto", ".plan.json"))
}
