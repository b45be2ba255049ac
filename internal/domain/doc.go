// Package domain models the markets, street fairs, and cultural venues that
// the Feriando app shows on its map and list views.
//
// # Data Sources
//
// Places originate from Buenos Aires open-data exports. Each export has its
// own format and vocabulary, so every source gets a dedicated adapter that
// converts it into the canonical [Place]:
//
//	Markets CSV      ";"-delimited, header row, comma decimal coordinates
//	Fairs CSV        ";"-delimited, header row, free-text day phrases
//	Cultural spaces  JSON array already close to the Place shape
//	Fairs GeoJSON    FeatureCollection, coordinates in [lng, lat] order
//
// Tabular exports are sometimes published as XLSX workbooks with the same
// header names; those are read into a [Table] and go through the same path.
//
// # Source Conventions
//
// Weekdays:
//
//	Upper-case Spanish names without accents, e.g. "MIERCOLES".
//	Normalized to capitalized Spanish with accents: "Miércoles".
//	Unknown codes pass through unchanged.
//
// Opening hours:
//
//	Free text of the form "de 8:00 a 14:00" (1 or 2 digit hours).
//	Normalized to zero-padded "HH:MM". Unparsable text falls back to
//	08:00-14:00.
//
// Products:
//
//	Comma-separated list with inconsistent spelling, e.g.
//	"Frutihorticolas, pescaderia, granja y carne". Each token is mapped
//	through a synonym table; unknown tokens pass through verbatim.
//	Missing lists become ["Various products"].
//
// Coordinates:
//
//	WGS-84 degrees. CSV exports use a comma as decimal separator
//	("-34,6037"). Unparsable values become 0; a place at 0,0 has an
//	unknown location and may be geocoded from its address.
//
// # Lenient Parsing
//
// Field-level problems never fail a record. Each normalizer substitutes a
// fixed default and the filter UI relies on those exact defaults. Lenient
// fallbacks that hide real data (unmapped fair day phrases, unknown fair
// types) are reported through [Diagnostics] so they can be reviewed.
//
// # Derived Attributes
//
// Schedule bucket:
//
//	morning    open in [6,14) and close <= 14
//	afternoon  open in [14,20) and close <= 20
//	night      open >= 20 or close <= 6
//	all_day    anything else
//
// Specialties and services are keyword matches over products, notes, and
// name. Tags combine type, up to three known products, specialties, and up
// to two known services, without duplicates.
package domain
