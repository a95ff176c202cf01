package pki

var (
	IsHostname = isHostname
	CertStatus = certStatus
)
