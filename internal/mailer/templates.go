package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// BillEmailData holds the fields shared by all bill notification emails.
type BillEmailData struct {
	RecipientName string
	BillName      string
	BillID        string
	Amount        string // pre-formatted with currency symbol
	ActorName     string // creator, updater, or payer depending on the email
	BaseURL       string
}

func (d BillEmailData) BillLink() string {
	return fmt.Sprintf("%s/bills/%s", d.BaseURL, d.BillID)
}

// BuildBillCreatedEmail notifies a participant that they were added to a
// new bill.
func BuildBillCreatedEmail(to string, data BillEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s added you to the bill %q", data.ActorName, data.BillName),
		TextBody: buildBillText(data, fmt.Sprintf("%s created a bill and added you to it.", data.ActorName), "Your share is"),
		HTMLBody: buildBillHTML(data, fmt.Sprintf("%s created a bill and added you to it.", data.ActorName), "Your share is"),
	}
}

// BuildBillUpdatedEmail notifies a participant that a bill they are on
// changed and their share was recomputed.
func BuildBillUpdatedEmail(to string, data BillEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("The bill %q was updated", data.BillName),
		TextBody: buildBillText(data, fmt.Sprintf("%s updated the bill, so the shares were recalculated.", data.ActorName), "Your new share is"),
		HTMLBody: buildBillHTML(data, fmt.Sprintf("%s updated the bill, so the shares were recalculated.", data.ActorName), "Your new share is"),
	}
}

// BuildPaymentMarkedEmail notifies the other participants that someone
// marked their share paid.
func BuildPaymentMarkedEmail(to string, data BillEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s paid their share of %q", data.ActorName, data.BillName),
		TextBody: buildBillText(data, fmt.Sprintf("%s marked their payment as complete.", data.ActorName), "Their share was"),
		HTMLBody: buildBillHTML(data, fmt.Sprintf("%s marked their payment as complete.", data.ActorName), "Their share was"),
	}
}

// BuildBillSettledEmail notifies every participant that the bill is fully
// settled.
func BuildBillSettledEmail(to string, data BillEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("The bill %q is settled", data.BillName),
		TextBody: buildBillText(data, "Everyone has paid. This bill is fully settled.", "The bill total was"),
		HTMLBody: buildBillHTML(data, "Everyone has paid. This bill is fully settled.", "The bill total was"),
	}
}

func buildBillText(data BillEmailData, lead, amountLabel string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.RecipientName)
	buf.WriteString(lead + "\n\n")
	fmt.Fprintf(&buf, "Bill: %s\n", data.BillName)
	fmt.Fprintf(&buf, "%s: %s\n\n", amountLabel, data.Amount)
	fmt.Fprintf(&buf, "View the bill: %s\n", data.BillLink())
	return buf.String()
}

type billHTMLData struct {
	BillEmailData
	Lead        string
	AmountLabel string
}

func buildBillHTML(data BillEmailData, lead, amountLabel string) string {
	var buf bytes.Buffer
	_ = billHTMLTemplate.Execute(&buf, billHTMLData{
		BillEmailData: data,
		Lead:          lead,
		AmountLabel:   amountLabel,
	})
	return buf.String()
}

var billHTMLTemplate = template.Must(template.New("bill").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin: 0; padding: 0; font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151;">Hi {{.RecipientName}},</p>
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151;">{{.Lead}}</p>
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 20px; margin-bottom: 24px;">
                <p style="margin: 0 0 8px; font-size: 14px; color: #6b7280;">{{.BillName}}</p>
                <p style="margin: 0; font-size: 24px; font-weight: 700; color: #1f2937;">{{.AmountLabel}}: {{.Amount}}</p>
              </div>
              <p style="margin: 0; text-align: center;">
                <a href="{{.BillLink}}" style="display: inline-block; background-color: #4f46e5; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none; font-size: 16px;">View bill</a>
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))
