package notify

import (
	"context"
	"strings"
	"testing"

	"remesitas-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestWhatsAppLink_StripsNonDigitsAndEscapes(t *testing.T) {
	link := WhatsAppLink("+53 5550-0002", "Su remesa REM-ABC llegó")

	if !strings.HasPrefix(link, "https://wa.me/5355500002?text=") {
		t.Errorf("Unexpected link prefix: %s", link)
	}
	if strings.ContainsAny(link, " ó") {
		t.Errorf("Expected escaped message text, got %s", link)
	}
}

func TestNotify_DisabledProducesManualLink(t *testing.T) {
	service := NewService(models.NotifyConfig{})

	result := service.Notify(context.Background(), "+5355500002", "hola")
	if result.Sent {
		t.Error("Expected Sent=false without credentials")
	}
	if result.Channel != "link" {
		t.Errorf("Expected channel link, got %s", result.Channel)
	}
	if result.ManualLink == "" {
		t.Error("Expected a manual link")
	}
	if result.Err != nil {
		t.Errorf("Disabled notifier must not report an error, got %v", result.Err)
	}
}

func TestNotify_EmptyPhone(t *testing.T) {
	service := NewService(models.NotifyConfig{})

	result := service.Notify(context.Background(), "  ", "hola")
	if result.Err == nil {
		t.Error("Expected error for empty phone")
	}
	if result.Sent {
		t.Error("Expected Sent=false for empty phone")
	}
}

func TestEnabled(t *testing.T) {
	if NewService(models.NotifyConfig{}).Enabled() {
		t.Error("Expected disabled without credentials")
	}
	enabled := NewService(models.NotifyConfig{
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "token",
	})
	if !enabled.Enabled() {
		t.Error("Expected enabled with credentials")
	}
}

func TestDeliveredMessage_ContainsCode(t *testing.T) {
	rem := &models.Remittance{
		Code:             "REM-ABCD1234",
		BeneficiaryName:  "Ana Perez",
		AmountDelivery:   decimal.RequireFromString("21000"),
		DeliveryCurrency: models.CurrencyCUP,
	}

	msg := DeliveredMessage(rem)
	if !strings.Contains(msg, "REM-ABCD1234") {
		t.Errorf("Expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "21000") {
		t.Errorf("Expected amount in message, got %q", msg)
	}
}
