package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/scoutline/leadlist-cli/internal/model"
)

var xlsxHeader = []string{
	"First Name", "Last Name", "Title", "Seniority", "LinkedIn",
	"Company", "Domain", "Size", "Industry", "Location",
	"Email", "Phone", "Status", "Quality Score", "Quality Reason",
}

// WriteXLSX writes the given leads to a single-sheet workbook at path.
func WriteXLSX(path string, leads []model.EnrichmentRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range xlsxHeader {
		header.AddCell().Value = name
	}

	for _, lead := range leads {
		row := sheet.AddRow()
		for _, v := range []string{
			lead.FirstName, lead.LastName, lead.Title, lead.Seniority, lead.LinkedInURL,
			lead.CompanyName, lead.CompanyDomain, lead.CompanySize, lead.CompanyIndustry, lead.CompanyLocation,
			lead.Email, lead.Phone, string(lead.EnrichmentStatus),
		} {
			row.AddCell().Value = v
		}

		score := row.AddCell()
		if lead.QualityScore > 0 {
			score.SetFloat(lead.QualityScore)
		}
		row.AddCell().Value = lead.QualityReason
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save workbook")
	}
	return nil
}
