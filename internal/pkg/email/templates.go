// internal/pkg/email/templates.go
package email

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        {{template "content" .}}
        <p>If you have any questions, please contact our support team at <a href="{{.SupportURL}}">{{.SupportURL}}</a>.</p>
        <p>Best regards,<br>{{.SiteName}} Team</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
    </div>
</body>
</html>{{end}}`

const orderConfirmationTemplate = `{{define "content"}}
<p>Thank you for your order! We have received your payment and your order <strong>{{.OrderNumber}}</strong> is confirmed.</p>
<p>Order date: {{.OrderDate}}<br>Payment: {{.PaymentMethod}}</p>
<table style="width: 100%; border-collapse: collapse;">
    <tr style="background-color: #f8f8f8;">
        <th align="left">Item</th><th align="left">Size</th><th align="right">Qty</th><th align="right">Price</th><th align="right">Total</th>
    </tr>
    {{range .Items}}
    <tr>
        <td>{{.Name}}</td><td>{{.Size}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.Price}}</td><td align="right">{{.Total}}</td>
    </tr>
    {{end}}
</table>
<p>Subtotal: {{.Currency}} {{.Subtotal}}<br>Shipping: {{.Currency}} {{.ShippingFee}}<br><strong>Total: {{.Currency}} {{.OrderTotal}}</strong></p>
<p>Shipping to:<br>
{{with .ShippingAddress}}{{.Name}}<br>{{.Line}}<br>{{.City}}, {{.State}} {{.PostalCode}}<br>{{.Country}}<br>{{.Phone}}{{end}}</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
{{end}}`

const orderStatusUpdateTemplate = `{{define "content"}}
<p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
{{if .StatusMessage}}<p>{{.StatusMessage}}</p>{{end}}
<p><a href="{{.OrderURL}}">Track your order</a></p>
{{end}}`
