package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Dispatcher формирует письма по шаблонам и передаёт их Sender.
type Dispatcher struct {
	sender    Sender
	from      Address
	appName   string
	templates *template.Template
	title     cases.Caser
}

// NewDispatcher создаёт диспетчер. from задаёт адрес отправителя по умолчанию.
func NewDispatcher(sender Sender, from Address, appName string) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		from:      from,
		appName:   appName,
		templates: template.Must(template.New("mail").Parse(mailTemplates)),
		title:     cases.Title(language.Indonesian),
	}
}

// SendOTP отправляет одноразовый код. purpose задаёт контекст запроса кода.
func (d *Dispatcher) SendOTP(ctx context.Context, to Address, code, purpose string, ttl time.Duration) error {
	data := map[string]any{
		"App":     d.appName,
		"Code":    code,
		"Purpose": d.formatPurpose(purpose),
		"Minutes": int(ttl.Minutes()),
	}
	return d.render(ctx, to, fmt.Sprintf("%s: kode verifikasi Anda", d.appName), "otp", data)
}

// SendAccessCode отправляет код доступа. approved=true для письма об одобрении
// заявки, false для сброса администратором.
func (d *Dispatcher) SendAccessCode(ctx context.Context, to Address, name, code string, approved bool) error {
	subject := fmt.Sprintf("%s: kode akses baru", d.appName)
	if approved {
		subject = fmt.Sprintf("%s: pendaftaran petugas disetujui", d.appName)
	}
	data := map[string]any{
		"App":      d.appName,
		"Name":     name,
		"Code":     code,
		"Approved": approved,
	}
	return d.render(ctx, to, subject, "access_code", data)
}

// SendRejection сообщает об отклонении заявки сотрудника.
func (d *Dispatcher) SendRejection(ctx context.Context, to Address, name, reason string) error {
	data := map[string]any{
		"App":    d.appName,
		"Name":   name,
		"Reason": reason,
	}
	return d.render(ctx, to, fmt.Sprintf("%s: pendaftaran petugas ditolak", d.appName), "rejection", data)
}

// SendRaw отправляет готовый HTML. Пустой from заменяется адресом по умолчанию.
func (d *Dispatcher) SendRaw(ctx context.Context, from, to Address, subject, html string) error {
	if from == "" {
		from = d.from
	}
	return d.sender.Send(ctx, from, to, subject, html)
}

func (d *Dispatcher) render(ctx context.Context, to Address, subject, name string, data any) error {
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("mail: render %s: %w", name, err)
	}
	return d.sender.Send(ctx, d.from, to, subject, buf.String())
}

// formatPurpose превращает "staff_registration" в "Staff Registration".
func (d *Dispatcher) formatPurpose(p string) string {
	if p == "" {
		return ""
	}
	return d.title.String(strings.ReplaceAll(p, "_", " "))
}

const mailTemplates = `
{{define "layout_start"}}<div style="font-family:Arial,sans-serif;max-width:480px;margin:0 auto;padding:24px;color:#1f2937">
<h2 style="color:#1e3a8a;margin-top:0">{{.App}}</h2>{{end}}
{{define "layout_end"}}<p style="font-size:12px;color:#6b7280;margin-top:32px">Email ini dikirim otomatis oleh sistem siskamling {{.App}}. Jangan balas email ini.</p></div>{{end}}

{{define "otp"}}{{template "layout_start" .}}
<p>Gunakan kode berikut untuk melanjutkan{{if .Purpose}} <b>{{.Purpose}}</b>{{end}}:</p>
<p style="font-size:32px;letter-spacing:8px;font-weight:bold;text-align:center">{{.Code}}</p>
<p>Kode berlaku selama {{.Minutes}} menit dan hanya dapat digunakan satu kali.</p>
<p>Jika Anda tidak meminta kode ini, abaikan email ini.</p>
{{template "layout_end" .}}{{end}}

{{define "access_code"}}{{template "layout_start" .}}
<p>Halo {{.Name}},</p>
{{if .Approved}}<p>Pendaftaran Anda sebagai petugas ronda telah disetujui. Gunakan kode akses berikut untuk masuk:</p>
{{else}}<p>Administrator telah mengatur ulang kode akses Anda. Kode akses baru Anda:</p>{{end}}
<p style="font-size:24px;font-weight:bold;text-align:center;font-family:monospace">{{.Code}}</p>
<p>Simpan kode ini dengan aman. Anda dapat menggantinya sendiri dari halaman profil petugas.</p>
{{template "layout_end" .}}{{end}}

{{define "rejection"}}{{template "layout_start" .}}
<p>Halo {{.Name}},</p>
<p>Mohon maaf, pendaftaran Anda sebagai petugas ronda belum dapat kami setujui.</p>
{{if .Reason}}<p>Alasan: {{.Reason}}</p>{{end}}
<p>Silakan hubungi pengurus RT/RW untuk informasi lebih lanjut.</p>
{{template "layout_end" .}}{{end}}
`
