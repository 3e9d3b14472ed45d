package entities

// BuddhistEraOffset is the number of years the Buddhist Era runs ahead of the Gregorian calendar
const BuddhistEraOffset = 543

// BuddhistToGregorian converts a Buddhist Era year to a Gregorian year
func BuddhistToGregorian(year int) int { return year - BuddhistEraOffset }

// GregorianToBuddhist converts a Gregorian year to a Buddhist Era year
func GregorianToBuddhist(year int) int { return year + BuddhistEraOffset }
