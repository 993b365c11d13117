package models

import "github.com/shopspring/decimal"

var (
	tierPrices = map[PublicationType]decimal.Decimal{
		PublicationStandard:     decimal.NewFromInt(1358),
		PublicationStandardPlus: decimal.NewFromInt(4277),
		PublicationPremium:      decimal.NewFromInt(12542),
	}
	externalBoardSurcharge = decimal.NewFromInt(2100)
)

// Cost prices a publication: (tier price + external surcharge) per city.
func Cost(tier PublicationType, external bool, cities int) decimal.Decimal {
	perCity := tierPrices[tier]
	if external {
		perCity = perCity.Add(externalBoardSurcharge)
	}
	return perCity.Mul(decimal.NewFromInt(int64(cities)))
}

// Cost prices the vacancy's currently stamped publication parameters.
func (v *Vacancy) Cost() decimal.Decimal {
	return Cost(v.PublicationType, v.PublishOnExternalBoard, len(v.Cities))
}
