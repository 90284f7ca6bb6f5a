package email

import "html/template"

const premiumActivatedTemplate = `
{{define "premium_activated"}}
<div style="font-family: Arial, sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Hola {{.Name}}!</h2>
  <p>Tu pago fue aprobado y tu cuenta ChefScan.IA Premium ya esta activa.</p>
  <ul>
    <li>Escaneos de ingredientes ilimitados</li>
    <li>Recetas premium con el chef IA</li>
    <li>Inventario de perecederos sin limites</li>
  </ul>
  <p>Tu suscripcion esta vigente hasta el <strong>{{.EndDate.Format "02/01/2006"}}</strong>.</p>
  <p>Buen provecho,<br>El equipo de ChefScan.IA</p>
</div>
{{end}}`

const premiumCancelledTemplate = `
{{define "premium_cancelled"}}
<div style="font-family: Arial, sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Hola {{.Name}},</h2>
  <p>Tu suscripcion premium fue cancelada. Seguiras teniendo acceso al plan
  gratuito con sus limites habituales.</p>
  <p>Puedes reactivar premium cuando quieras desde la app.</p>
  <p>El equipo de ChefScan.IA</p>
</div>
{{end}}`

const expiryWarningTemplate = `
{{define "expiry_warning"}}
<div style="font-family: Arial, sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Hola {{.Name}},</h2>
  <p>Tu suscripcion premium vence en <strong>{{.DaysLeft}} dias</strong>
  (el {{.ExpiryDate.Format "02/01/2006"}}).</p>
  <p>Renueva desde la app para no perder tus beneficios.</p>
  <p>El equipo de ChefScan.IA</p>
</div>
{{end}}`

func loadTemplates() (*template.Template, error) {
	t := template.New("email")
	for _, src := range []string{
		premiumActivatedTemplate,
		premiumCancelledTemplate,
		expiryWarningTemplate,
	} {
		if _, err := t.Parse(src); err != nil {
			return nil, err
		}
	}
	return t, nil
}
