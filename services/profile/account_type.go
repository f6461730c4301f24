package profile

import (
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"

	"github.com/customeros/metricsrelay/internal/utils"
)

const (
	AccountTypeEnterprise = "Enterprise User"
	AccountTypeOther      = "Other"
)

var generalTlds = []string{
	"com", "net", "io", "ai", "co", "app", "us", "uk", "ca",
	"de", "fr", "jp", "au", "ru", "ch", "se", "no", "nl", "it",
	"es", "dk", "cz", "br", "be", "at", "ar", "in", "mx", "pl",
	"pt", "fi", "gr", "hk", "id", "ie", "il", "is", "kr", "my",
	"nz", "ph", "sg", "th", "tw", "vn", "cn",
}

type domainAccountType struct {
	suffix      string
	accountType string
}

// checked in order, so specific domains come before their tld
var domainAccountTypes = []domainAccountType{
	{"broadinstitute.org", "Broad Employee"},
	{"firecloud.org", "Broad Employee"},
	{"verily.com", "Verily Employee"},
	{"google.com", "Verily Employee"},
	{"gmail.com", "Independent User"},
	{"gserviceaccount.com", "Service Account User"},
	{"edu", "Educational Institute User"},
	{"org", "Non-profit User"},
	{"gov", "Government User"},
}

// EmailDomain returns the lower cased domain of a syntactically valid email, or "".
func EmailDomain(email string) string {
	validation := mailvalidate.ValidateEmailSyntax(strings.TrimSpace(email))
	if !validation.IsValid {
		return ""
	}
	domain := strings.ToLower(validation.Domain)
	if domain == "" {
		domain = utils.ExtractDomainFromEmail(email)
	}
	return domain
}

// AccountType classifies an email for the analytics profile. It returns "" when the
// domain matches no known category and has no general tld.
func AccountType(email string) string {
	domain := EmailDomain(email)
	if domain == "" {
		return AccountTypeOther
	}

	for _, entry := range domainAccountTypes {
		if hasDomainSuffix(domain, entry.suffix) {
			return entry.accountType
		}
		for _, tld := range generalTlds {
			if strings.HasSuffix(domain, "."+entry.suffix+"."+tld) {
				return entry.accountType
			}
		}
	}

	for _, tld := range generalTlds {
		if strings.HasSuffix(domain, "."+tld) {
			return AccountTypeEnterprise
		}
	}
	return ""
}

func hasDomainSuffix(domain, suffix string) bool {
	return domain == suffix || strings.HasSuffix(domain, "."+suffix)
}
