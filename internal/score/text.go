package score

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ads97/Veritas/internal/model"
)

func redText(d model.Dimension, n int) string {
	src := fmt.Sprintf("%d %s", n, plural(n, "source", "sources"))
	switch d {
	case model.DimensionFraudReport:
		return fmt.Sprintf("Scam or fraud reports mention the landlord (%s)", src)
	case model.DimensionPresenceLiveness:
		return fmt.Sprintf("Landlord appears to be deceased or no longer at the address (%s)", src)
	case model.DimensionLegalMention:
		return fmt.Sprintf("Evictions, lawsuits or adverse news mention the landlord (%s)", src)
	case model.DimensionOwnershipProof:
		return fmt.Sprintf("Records show someone else owns the property (%s)", src)
	case model.DimensionIdentityMatch:
		return fmt.Sprintf("Name and address do not belong together (%s)", src)
	default:
		return fmt.Sprintf("%s contradicted (%s)", d.Label(), src)
	}
}

func greenText(d model.Dimension, n int) string {
	src := fmt.Sprintf("%d %s", n, plural(n, "source", "sources"))
	switch d {
	case model.DimensionFraudReport:
		return fmt.Sprintf("No scam reports; sources vouch for the landlord (%s)", src)
	case model.DimensionPresenceLiveness:
		return fmt.Sprintf("Landlord is currently associated with the address (%s)", src)
	case model.DimensionLegalMention:
		return fmt.Sprintf("Only neutral or positive coverage found (%s)", src)
	case model.DimensionOwnershipProof:
		return fmt.Sprintf("Sources show the landlord owns the property (%s)", src)
	case model.DimensionIdentityMatch:
		return fmt.Sprintf("Name and address match public sources (%s)", src)
	default:
		return fmt.Sprintf("%s corroborated (%s)", d.Label(), src)
	}
}

const (
	questionUnmatched   = "Can the landlord show a deed, property tax bill or signed management agreement with the owner of record?"
	questionBelowMarket = "Why is the rent well below comparable listings in the area?"
	questionPaymentFmt  = "Will the landlord accept a traceable payment method instead of %s, after signing a lease?"
)

var redQuestions = map[model.Dimension]string{
	model.DimensionFraudReport:      "Have you read the scam reports that mention this landlord, and can the landlord explain them?",
	model.DimensionPresenceLiveness: "Can the landlord do a live video call from inside the property?",
	model.DimensionLegalMention:     "Can the landlord explain the court or news records that mention them?",
	model.DimensionOwnershipProof:   "Who is the owner of record, and is the landlord authorized to rent on their behalf?",
	model.DimensionIdentityMatch:    "Can the landlord show government ID matching the name on the listing?",
}

var defaultQuestions = []string{
	"Can you provide more details about the landlord?",
	"What payment methods are being requested?",
	"Have you been able to view the property in person?",
	"Are there any unusual requests or pressure tactics?",
}

var riskyPayments = []string{"wire", "western union", "moneygram", "gift card", "crypto", "bitcoin", "zelle", "cash app", "cashapp", "venmo"}

// RiskyPayment reports whether method is a payment channel common in rental scams
func RiskyPayment(method string) bool {
	m := strings.ToLower(method)
	for _, r := range riskyPayments {
		if strings.Contains(m, r) {
			return true
		}
	}
	return false
}

// FormatRent renders a monthly rent as "$3,400/month"
func FormatRent(v float64) string {
	n := int64(v + 0.5)
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String() + "/month"
}
