package webhook

// PlanUnknown is the fallback plan name for unmapped price ids. Resolution
// never fails; an unmapped price surfaces as "Unknown" downstream instead
// of blocking the subscription write.
const PlanUnknown = "Unknown"

// priceToPlan maps provider price ids to human-readable plan names.
var priceToPlan = map[string]string{
	"price_starter_monthly":  "Starter",
	"price_starter_yearly":   "Starter",
	"price_pro_monthly":      "Pro",
	"price_pro_yearly":       "Pro",
	"price_business_monthly": "Business",
	"price_business_yearly":  "Business",
}

// PlanForPrice resolves a provider price id to a plan name.
// Unknown price ids resolve to PlanUnknown.
func PlanForPrice(priceID string) string {
	if plan, ok := priceToPlan[priceID]; ok {
		return plan
	}
	return PlanUnknown
}
