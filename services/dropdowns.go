package services

// UnitOptions lists the unit labels offered in the item table's unit cell.
// Free text is still accepted; these are only the common cases.
var UnitOptions = []string{
	"式",
	"個",
	"組",
	"支",
	"捲",
	"米",
	"才",
	"坪",
	"片",
	"包",
	"箱",
	"工",
	"趟",
	"處",
}

// RateOptions lists the percentage presets offered next to the management
// fee and tax rate inputs.
var RateOptions = []int{0, 5, 8, 10, 15, 20}
