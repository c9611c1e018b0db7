package handlers

import (
	"learnly/certificate"
	"learnly/mailer"
	"learnly/store"
)

// Services shared across all handler files, wired once at startup.
var (
	issuer    *certificate.Issuer
	certStore store.CertificateStore
	mail      *mailer.Mailer
)

// Init injects the services the handlers depend on. mail may be nil
// when SMTP is not configured.
func Init(i *certificate.Issuer, certs store.CertificateStore, m *mailer.Mailer) {
	issuer = i
	certStore = certs
	mail = m
}
