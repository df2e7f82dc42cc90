package services

// Order emails are rendered with fmt.Sprintf. Every %s argument must be
// HTML-escaped by the caller.

const orderEmailLayoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>%s</title>
</head>
<body style="margin:0;padding:0;background:#f4f4f5;font-family:Arial,Helvetica,sans-serif;color:#18181b;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:24px 0;">
    <tr><td align="center">
      <table width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
        <tr><td style="font-size:22px;font-weight:bold;padding-bottom:8px;">%s</td></tr>
        <tr><td style="font-size:15px;line-height:22px;padding-bottom:16px;">%s</td></tr>
        <tr><td>%s</td></tr>
        <tr><td style="padding-top:24px;">
          <a href="%s" style="background:#dc2626;color:#ffffff;padding:12px 20px;border-radius:6px;text-decoration:none;">View your order</a>
        </td></tr>
        <tr><td style="font-size:12px;color:#71717a;padding-top:32px;">Order %s &middot; %s</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

const orderItemsTableHTML = `<table width="100%%" cellpadding="6" cellspacing="0" style="border-collapse:collapse;font-size:14px;">
  <tr style="background:#f4f4f5;"><th align="left">Item</th><th align="right">Qty</th><th align="right">Amount</th></tr>
  %s
  <tr><td colspan="2" align="right">Discounts</td><td align="right">-%s</td></tr>
  <tr><td colspan="2" align="right"><strong>Total</strong></td><td align="right"><strong>%s</strong></td></tr>
</table>`

const orderItemRowHTML = `<tr><td>%s</td><td align="right">%d</td><td align="right">%s</td></tr>`
