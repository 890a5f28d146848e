package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"villabook/internal/app/policies"
)

const (
	mapsURL = "https://maps.app.goo.gl/wWEZfYFCeQ6XYGtv7"
	logoURL = "https://raw.githubusercontent.com/Drim0717/Villas-Maribella/main/images/Logo.png"
)

var ErrInvalidRequest = errors.New("email: invalid confirmation request")

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<div style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; color: #333; max-width: 600px; margin: 0 auto; border: 1px solid #eee; border-radius: 12px; overflow: hidden;">
  <div style="background-color: #00B4D8; padding: 30px; text-align: center; color: white;">
    <img src="{{.Logo}}" alt="Villas Maribella" style="width: 150px; margin-bottom: 15px;">
    <h1 style="margin: 0; font-size: 24px; letter-spacing: 1px;">¡Reserva Confirmada!</h1>
  </div>
  <div style="padding: 30px; background-color: #ffffff;">
    <p style="font-size: 16px;">Hola <strong>{{.N.GuestName}}</strong>,</p>
    <p style="line-height: 1.6;">Estamos encantados de confirmar tu estadía en <strong>Villas Maribella</strong>.</p>
    <div style="background-color: #f0f9ff; padding: 20px; border-radius: 10px; border-left: 5px solid #0077B6; margin: 25px 0;">
      <h3 style="color: #0077B6; margin-top: 0;">Detalles de la Estadía</h3>
      <table style="width: 100%; font-size: 14px; border-collapse: collapse;">
        <tr><td><strong>Código:</strong></td><td>{{.N.ReservationID}}</td></tr>
        <tr><td><strong>Villa:</strong></td><td>#{{.N.VillaNumber}}</td></tr>
        <tr><td><strong>Check-in:</strong></td><td>{{.N.CheckIn}}</td></tr>
        <tr><td><strong>Check-out:</strong></td><td>{{.N.CheckOut}}</td></tr>
        <tr><td style="color: #0077B6;"><strong>Total:</strong></td><td style="color: #0077B6;"><strong>${{.N.Total}}</strong></td></tr>
      </table>
    </div>
    <div style="text-align: center; margin-top: 30px;">
      <a href="{{.Maps}}" style="background-color: #0077B6; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">¿Cómo llegar? Ver en Mapas</a>
    </div>
    <p style="margin-top: 20px; font-weight: bold;">¡Te esperamos pronto!</p>
  </div>
  <div style="background-color: #f8f9fa; padding: 20px; text-align: center; border-top: 1px solid #eeeeee;">
    <p style="font-size: 12px; color: #999; margin: 0;">Villas Maribella - Cabarete, República Dominicana</p>
  </div>
</div>`))

// Confirmation builds the guest confirmation email. Field values are HTML
// escaped.
func Confirmation(n policies.Notification) (Message, error) {
	var missing []string
	if strings.TrimSpace(n.GuestEmail) == "" {
		missing = append(missing, "guestEmail")
	}
	if strings.TrimSpace(n.ReservationID) == "" {
		missing = append(missing, "reservationId")
	}
	if len(missing) > 0 {
		return Message{}, fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	var buf bytes.Buffer
	data := struct {
		N          policies.Notification
		Logo, Maps string
	}{N: n, Logo: logoURL, Maps: mapsURL}
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{
		From:    DefaultFrom,
		To:      []string{strings.TrimSpace(n.GuestEmail)},
		Subject: fmt.Sprintf("Confirmación de Reserva #%s - Villas Maribella", n.ReservationID),
		HTML:    buf.String(),
	}, nil
}
