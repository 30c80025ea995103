// =============================================================================
// mercado - XML Export
// =============================================================================
//
// XML STRUCTURE:
//
//   <plan session="semana" evaluatedAt="2024-02-01T10:00:00Z">
//     <selection>
//       <category n="1">1</category>
//     </selection>
//     <items>
//       <item n="1" key="kg|cebolla" checked="false">
//         <quantity>2</quantity>
//         <unit>kg</unit>
//         <product>Cebolla</product>
//         <pricePerKg date="2024-02-01">3.00</pricePerKg>
//       </item>
//     </items>
//     <costs grandTotal="6.00">
//       <category n="1" name="1" lines="1">6.00</category>
//     </costs>
//     <missingPrices>
//       <product>Arroz</product>
//     </missingPrices>
//     <missingEquivalences/>
//   </plan>
//
// Money values are written with two decimals and no currency symbol.
// Elements without value or children are written self-closing.
//
// =============================================================================

package report

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/ginjaninja78/mercado/internal/planner"
)

// XMLOptions contains options for XML generation.
type XMLOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement names the document element.
	// Default: "plan"
	RootElement string

	// IndexAttribute is the attribute holding 1-based positions.
	// Default: "n"
	IndexAttribute string
}

// DefaultXMLOptions returns the default generation options.
func DefaultXMLOptions() XMLOptions {
	return XMLOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "plan",
		IndexAttribute:        "n",
	}
}

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// GenerateXML creates an XML document from an evaluation.
func GenerateXML(ev *planner.Evaluation) []byte {
	return GenerateXMLWithOptions(ev, DefaultXMLOptions())
}

// GenerateXMLWithOptions creates an XML document with custom options.
func GenerateXMLWithOptions(ev *planner.Evaluation, options XMLOptions) []byte {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	}

	writeElement(&buffer, buildDocument(ev, options), options.Indent, 0)
	return buffer.Bytes()
}

// buildDocument constructs the XML document structure.
func buildDocument(ev *planner.Evaluation, options XMLOptions) XMLElement {
	root := element(options.RootElement, "",
		attr("session", ev.SessionName),
		attr("evaluatedAt", ev.EvaluatedAt.UTC().Format(time.RFC3339)))

	selection := element("selection", "")
	for i, c := range ev.Selection {
		selection.Children = append(selection.Children,
			element("category", c, index(options, i)))
	}
	root.Children = append(root.Children, selection)

	items := element("items", "")
	for i, line := range ev.Aggregated {
		item := element("item", "",
			index(options, i),
			attr("key", ev.Checklist[i].Key),
			attr("checked", fmt.Sprintf("%t", ev.Checklist[i].Checked)))
		item.Children = append(item.Children,
			element("quantity", line.TotalQuantity.String()),
			element("unit", line.Unit),
			element("product", line.Product))

		if p := ev.Prices[i]; p.Price.Valid {
			item.Children = append(item.Children,
				element("pricePerKg", p.Price.Decimal.StringFixed(2), attr("date", p.Date.Format("2006-01-02"))))
		}
		items.Children = append(items.Children, item)
	}
	root.Children = append(root.Children, items)

	costs := element("costs", "", attr("grandTotal", ev.Costs.GrandTotal.StringFixed(2)))
	for i, c := range ev.Costs.Categories {
		costs.Children = append(costs.Children,
			element("category", c.Total.StringFixed(2),
				index(options, i),
				attr("name", c.Category),
				attr("lines", fmt.Sprintf("%d", c.Lines))))
	}
	root.Children = append(root.Children, costs)

	missingPrices := element("missingPrices", "")
	for _, p := range ev.Costs.MissingPrices {
		missingPrices.Children = append(missingPrices.Children, element("product", p))
	}
	missingEquivalences := element("missingEquivalences", "")
	for _, p := range ev.Costs.MissingEquivalences {
		missingEquivalences.Children = append(missingEquivalences.Children, element("product", p))
	}
	root.Children = append(root.Children, missingPrices, missingEquivalences)

	return root
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func element(name, value string, attrs ...xml.Attr) XMLElement {
	return XMLElement{
		XMLName:    xml.Name{Local: name},
		Attributes: attrs,
		Value:      value,
	}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func index(options XMLOptions, i int) xml.Attr {
	return attr(options.IndexAttribute, fmt.Sprintf("%d", i+1))
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, el XMLElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(el.XMLName.Local)

	for _, a := range el.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", a.Name.Local, escapeXML(a.Value)))
	}

	if len(el.Children) == 0 && el.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if el.Value != "" {
		buffer.WriteString(escapeXML(el.Value))
	} else {
		buffer.WriteString("\n")

		for _, child := range el.Children {
			writeElement(buffer, child, indent, level+1)
		}

		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(el.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
