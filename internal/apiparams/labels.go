package apiparams

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// transactionLabels maps every display label of a deal kind to its API code.
var transactionLabels = map[string]string{
	"იყიდება":                   "sale",
	"ქირავდება":                 "rent",
	"გირავდება":                 "mortgage",
	"იჯარით":                    "lease",
	"ქირავდება დღიურად":         "daily",
	"ნასყიდობის უფლებით იჯარა": "rent-to-buy",

	"for sale":    "sale",
	"for rent":    "rent",
	"mortgage":    "mortgage",
	"lease":       "lease",
	"daily rent":  "daily",
	"rent to buy": "rent-to-buy",

	"продается":        "sale",
	"сдается":          "rent",
	"залог":            "mortgage",
	"аренда":           "lease",
	"посуточно":        "daily",
	"аренда с выкупом": "rent-to-buy",
}

var propertyTypeLabels = map[string]string{
	"ბინა":       "apartment",
	"სახლი":      "house",
	"აგარაკი":    "cottage",
	"მიწა":       "land",
	"კომერციული": "commercial",
	"ოფისი":      "office",
	"სასტუმრო":   "hotel",

	"квартира":     "apartment",
	"дом":          "house",
	"дача":         "cottage",
	"участок":      "land",
	"коммерческая": "commercial",
	"офис":         "office",
	"гостиница":    "hotel",
}

// labelTable looks labels up by their normalized form.
type labelTable map[string]string

func newLabelTable(labels map[string]string) labelTable {
	t := make(labelTable, len(labels))
	for label, code := range labels {
		t[normalizeLabel(label)] = code
	}
	return t
}

// translate returns the API code of label, or label itself when it is not a
// known display label.
func (t labelTable) translate(label string) string {
	if code, ok := t[normalizeLabel(label)]; ok {
		return code
	}
	return label
}

var (
	transactionTable  = newLabelTable(transactionLabels)
	propertyTypeTable = newLabelTable(propertyTypeLabels)
)

// normalizeLabel folds case and composes runes so labels typed or pasted in
// different forms match. A Caser is stateful, hence one per call.
func normalizeLabel(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.Join(strings.Fields(s), " ")))
}

// TransactionCode translates a deal kind label to its API code.
func TransactionCode(label string) string {
	return transactionTable.translate(label)
}

// PropertyTypeCode translates a property type label to its API code.
func PropertyTypeCode(label string) string {
	return propertyTypeTable.translate(label)
}
