package notify

import (
	"fmt"

	"remesitas-go/internal/models"
)

// Message templates. All customer-facing text is Spanish, matching the
// operational language of the business.

func RequestReceivedMessage(rem *models.Remittance) string {
	return fmt.Sprintf("Nueva solicitud de remesa %s: %s USD para %s. Revísala en el panel.",
		rem.Code, rem.AmountSent.StringFixed(2), rem.BeneficiaryName)
}

func RemittanceCreatedMessage(rem *models.Remittance) string {
	return fmt.Sprintf("Su remesa %s fue registrada. %s recibirá %s %s. Total a pagar: %s USD.",
		rem.Code, rem.BeneficiaryName,
		rem.AmountDelivery.StringFixed(2), rem.DeliveryCurrency,
		rem.TotalCharged.StringFixed(2))
}

func CourierAssignedMessage(rem *models.Remittance) string {
	return fmt.Sprintf("Remesa %s asignada: entregar %s %s a %s (%s).",
		rem.Code, rem.AmountDelivery.StringFixed(2), rem.DeliveryCurrency,
		rem.BeneficiaryName, rem.BeneficiaryAddress)
}

func InTransitMessage(rem *models.Remittance) string {
	return fmt.Sprintf("Su remesa %s está en camino. Recibirá %s %s.",
		rem.Code, rem.AmountDelivery.StringFixed(2), rem.DeliveryCurrency)
}

func DeliveredMessage(rem *models.Remittance) string {
	return fmt.Sprintf("Remesa %s entregada a %s: %s %s.",
		rem.Code, rem.BeneficiaryName,
		rem.AmountDelivery.StringFixed(2), rem.DeliveryCurrency)
}

func RequestApprovedMessage(rem *models.Remittance) string {
	return fmt.Sprintf("Su solicitud %s fue aprobada. %s recibirá %s %s. Total a pagar: %s USD.",
		rem.Code, rem.BeneficiaryName,
		rem.AmountDelivery.StringFixed(2), rem.DeliveryCurrency,
		rem.TotalCharged.StringFixed(2))
}

func RequestRejectedMessage(rem *models.Remittance, reason string) string {
	if reason == "" {
		return fmt.Sprintf("Su solicitud %s fue rechazada. Contáctenos para más información.", rem.Code)
	}
	return fmt.Sprintf("Su solicitud %s fue rechazada: %s", rem.Code, reason)
}
