package carbon

// Compare converts grams of CO2 into the comparison baselines of ref.
func Compare(emissionsG float64, ref Reference) Comparisons {
	e := ref.Emissions
	tonnes := emissionsG / GramsPerTonne
	return Comparisons{
		WashingCycles:  ratio(emissionsG, e.WashingMachineCycle.CO2),
		CarKm:          ratio(emissionsG, e.Car1Km.CO2),
		TreeMonths:     ratio(emissionsG, e.TreeMonth.CO2),
		Flights:        ratio(emissionsG, e.Flight.CO2),
		OffsetCostMin:  tonnes * e.TonOffsetMin.CO2,
		OffsetCostMax:  tonnes * e.TonOffsetMax.CO2,
		OffsetCurrency: e.OffsetCurrency,
	}
}

func ratio(v, base float64) float64 {
	if base == 0 {
		return 0
	}
	return v / base
}
