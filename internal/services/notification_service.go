package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// MailSender delivers a prepared SendGrid message.
type MailSender interface {
	Send(msg *mail.SGMailV3) error
}

type SMSSender interface {
	SendSMS(to, body string) error
}

type sendgridMailer struct {
	client *sendgrid.Client
}

// NewSendgridMailer returns nil when no API key is configured.
func NewSendgridMailer(apiKey string) MailSender {
	if apiKey == "" {
		return nil
	}
	return &sendgridMailer{client: sendgrid.NewSendClient(apiKey)}
}

func (m *sendgridMailer) Send(msg *mail.SGMailV3) error {
	resp, err := m.client.Send(msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

type twilioSMS struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSMS returns nil when Twilio credentials are incomplete.
func NewTwilioSMS(cfg *config.Config) SMSSender {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromPhone == "" {
		return nil
	}
	return &twilioSMS{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		from: cfg.TwilioFromPhone,
	}
}

func (t *twilioSMS) SendSMS(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)
	_, err := t.client.Api.CreateMessage(params)
	return err
}

// NotificationService sends order emails and SMS. Failures are logged and
// never reach the caller.
type NotificationService struct {
	cfg    *config.Config
	mailer MailSender
	sms    SMSSender
}

func NewNotificationService(cfg *config.Config, mailer MailSender, sms SMSSender) *NotificationService {
	return &NotificationService{cfg: cfg, mailer: mailer, sms: sms}
}

var _ OrderNotifier = (*NotificationService)(nil)

func (s *NotificationService) OrderPaid(ctx context.Context, o *models.Order, u *models.User) {
	s.email(u, o,
		"Your Gymmawy order is confirmed",
		"Payment received",
		fmt.Sprintf("Hi %s, thanks for your order. We have received your payment of %s %s.",
			u.FirstName, utils.FormatMinorUnits(o.ChargeAmountCents), o.ChargeCurrency),
		true,
	)

	if !s.cfg.LDFlag_SendOrderSMS {
		return
	}
	phone := utils.Val(u.PhoneNumber)
	if phone == "" && o.Shipping != nil {
		phone = o.Shipping.Phone
	}
	if phone == "" {
		return
	}
	if s.sms == nil {
		utils.Logger.WithField("orderID", o.ID).Warn("Twilio client is nil, skipping order SMS")
		return
	}
	body := fmt.Sprintf("Gymmawy: order %s confirmed. Total %s %s.",
		o.ID.String()[:8], utils.FormatMinorUnits(o.TotalCents), o.Currency)
	if err := s.sms.SendSMS(phone, body); err != nil {
		utils.Logger.WithError(err).WithField("orderID", o.ID).Warn("Failed to send order SMS")
	}
}

func (s *NotificationService) OrderFailed(ctx context.Context, o *models.Order, u *models.User) {
	reason := "The payment was not completed."
	if o.FailureReason != nil && *o.FailureReason != "" {
		reason = "Reason: " + *o.FailureReason + "."
	}
	pointsNote := ""
	if o.PointsRedeemed > 0 {
		pointsNote = fmt.Sprintf(" The %d points you redeemed are back in your balance.", o.PointsRedeemed)
	}
	s.email(u, o,
		"Your Gymmawy payment did not go through",
		"Payment unsuccessful",
		fmt.Sprintf("Hi %s, your order was not paid. %s%s", u.FirstName, reason, pointsNote),
		false,
	)
}

func (s *NotificationService) OrderRefunded(ctx context.Context, o *models.Order, u *models.User) {
	s.email(u, o,
		"Your Gymmawy order has been refunded",
		"Refund processed",
		fmt.Sprintf("Hi %s, your order has been refunded (%s %s). Refunds can take a few days to appear on your statement.",
			u.FirstName, utils.FormatMinorUnits(o.ChargeAmountCents), o.ChargeCurrency),
		false,
	)
}

func (s *NotificationService) email(u *models.User, o *models.Order, subject, heading, message string, withItems bool) {
	logger := utils.Logger.WithFields(logrus.Fields{"orderID": o.ID, "subject": subject})
	if s.mailer == nil {
		logger.Warn("SendGrid client is nil, skipping order email")
		return
	}

	items := ""
	if withItems {
		items = renderOrderItems(o)
	}
	orderURL := s.cfg.FrontendURL + "/orders/" + o.ID.String()
	htmlBody := fmt.Sprintf(
		orderEmailLayoutHTML,
		html.EscapeString(subject),
		html.EscapeString(heading),
		html.EscapeString(message),
		items,
		html.EscapeString(orderURL),
		html.EscapeString(o.ID.String()),
		time.Now().UTC().Format(time.RFC1123Z),
	)
	plain := message + "\n\n" + orderURL

	from := mail.NewEmail(s.cfg.OrganizationName, s.cfg.LDFlag_SendgridFromEmail)
	to := mail.NewEmail(u.FullName(), u.Email)
	msg := mail.NewSingleEmail(from, subject, to, plain, htmlBody)
	msg.TrackingSettings = &mail.TrackingSettings{
		ClickTracking: &mail.ClickTrackingSetting{Enable: utils.Ptr(false)},
	}
	if s.cfg.LDFlag_SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}
	if err := s.mailer.Send(msg); err != nil {
		logger.WithError(err).Warn("Order email send failure")
		return
	}
	logger.Info("Order email sent")
}

func renderOrderItems(o *models.Order) string {
	var rows strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&rows, orderItemRowHTML,
			html.EscapeString(it.Name), it.Quantity, utils.FormatMinorUnits(it.LineTotalCents()))
	}
	return fmt.Sprintf(orderItemsTableHTML,
		rows.String(),
		utils.FormatMinorUnits(o.CouponDiscountCents+o.PointsDiscountCents),
		utils.FormatMinorUnits(o.TotalCents)+" "+html.EscapeString(o.Currency),
	)
}
