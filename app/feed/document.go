package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
)

// primaryDoc mirrors the parts of a Form C primary_doc.xml we read. Element
// names carry no namespace so both the formc and common namespaces match.
// Intermediate nodes are pointers: a nil pointer is a missing node.
type primaryDoc struct {
	XMLName    xml.Name       `xml:"edgarSubmission"`
	HeaderData *docHeaderData `xml:"headerData"`
	FormData   *docFormData   `xml:"formData"`
}

type docHeaderData struct {
	FilerInfo *struct {
		Filer *struct {
			FilerCredentials *struct {
				FilerCik string `xml:"filerCik"`
			} `xml:"filerCredentials"`
		} `xml:"filer"`
		LiveTestFlag string `xml:"liveTestFlag"`
	} `xml:"filerInfo"`
}

type docFormData struct {
	IssuerInformation *struct {
		IssuerInfo *struct {
			NameOfIssuer  string `xml:"nameOfIssuer"`
			IssuerWebsite string `xml:"issuerWebsite"`
			LegalStatus   *struct {
				JurisdictionOrganization string `xml:"jurisdictionOrganization"`
			} `xml:"legalStatus"`
		} `xml:"issuerInfo"`
		CompanyName string `xml:"companyName"`
	} `xml:"issuerInformation"`
	OfferingInformation *struct {
		MaximumOfferingAmount string `xml:"maximumOfferingAmount"`
		Price                 string `xml:"price"`
		DeadlineDate          string `xml:"deadlineDate"`
	} `xml:"offeringInformation"`
	SignatureInfo *struct {
		SignaturePersons *struct {
			SignaturePerson []struct {
				SignatureDate string `xml:"signatureDate"`
			} `xml:"signaturePerson"`
		} `xml:"signaturePersons"`
	} `xml:"signatureInfo"`
}

const (
	pathFilerCik     = "edgarSubmission/headerData/filerInfo/filer/filerCredentials/filerCik"
	pathDeadlineDate = "edgarSubmission/formData/offeringInformation/deadlineDate"
)

type DocumentFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

var _ DocumentFetcher = (*Client)(nil)

// DocumentExtractor fetches a filing's primary document and projects it onto
// an Offering.
type DocumentExtractor struct {
	client DocumentFetcher
}

func NewDocumentExtractor(client DocumentFetcher) *DocumentExtractor {
	return &DocumentExtractor{client: client}
}

func (e *DocumentExtractor) Run(ctx context.Context, docURL string) (*Offering, error) {
	data, err := e.client.Get(ctx, docURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch primary document %s: %w", docURL, err)
	}

	offering, err := e.Parse(data, docURL)
	if err != nil {
		return nil, err
	}

	slog.Debug("Primary document extracted", "url", docURL, "cik", offering.CompanyCIK, "deadline", offering.DeadlineDate)
	return offering, nil
}

// Parse maps raw primary document XML onto an Offering. Only the filer CIK
// and the deadline date are required; any other missing node leaves its
// field empty.
func (e *DocumentExtractor) Parse(data []byte, docURL string) (*Offering, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &MissingFieldError{DocumentURL: docURL, Path: "edgarSubmission"}
	}

	var doc primaryDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		// A well-formed document with another root element is a missing root, not a parse failure
		if _, ok := err.(xml.UnmarshalError); ok {
			return nil, &MissingFieldError{DocumentURL: docURL, Path: "edgarSubmission"}
		}
		return nil, fmt.Errorf("failed to parse primary document %s: %w", docURL, err)
	}

	offering := &Offering{DocumentURL: docURL}

	if h := doc.HeaderData; h != nil && h.FilerInfo != nil {
		offering.LiveStatus = CleanText(h.FilerInfo.LiveTestFlag)
		if f := h.FilerInfo.Filer; f != nil && f.FilerCredentials != nil {
			offering.CompanyCIK = CleanText(f.FilerCredentials.FilerCik)
		}
	}

	if fd := doc.FormData; fd != nil {
		if ii := fd.IssuerInformation; ii != nil {
			offering.FundingPortal = CleanText(ii.CompanyName)
			if info := ii.IssuerInfo; info != nil {
				offering.CompanyName = CleanText(info.NameOfIssuer)
				offering.CompanyURL = CleanText(info.IssuerWebsite)
				if info.LegalStatus != nil {
					offering.CompanyState = CleanText(info.LegalStatus.JurisdictionOrganization)
				}
			}
		}

		if oi := fd.OfferingInformation; oi != nil {
			offering.MaxOfferingAmount = ParseAmount(oi.MaximumOfferingAmount)
			offering.PricePerShare = ParseAmount(oi.Price)
			offering.DeadlineDate = NormalizeDate(oi.DeadlineDate)
		}

		if si := fd.SignatureInfo; si != nil && si.SignaturePersons != nil && len(si.SignaturePersons.SignaturePerson) > 0 {
			offering.SignatureDate = NormalizeDate(si.SignaturePersons.SignaturePerson[0].SignatureDate)
		}
	}

	if offering.CompanyCIK == "" {
		return nil, &MissingFieldError{DocumentURL: docURL, Path: pathFilerCik}
	}
	if offering.DeadlineDate == "" {
		return nil, &MissingFieldError{DocumentURL: docURL, Path: pathDeadlineDate}
	}

	return offering, nil
}
