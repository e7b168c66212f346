package ingest

// UEMOACities are the default queries for the ETL, grouped by country:
// Benin, Burkina Faso, Cote d'Ivoire, Guinea-Bissau, Mali, Niger, Senegal
// and Togo.
var UEMOACities = []string{
	"Porto-Novo", "Bafata",
	"Ouagadougou", "Bobo-Dioulasso",
	"Abidjan", "Yamoussoukro", "Bouake",
	"Bissau", "Gabu", "Bolama",
	"Bamako", "Sikasso", "Segou",
	"Niamey", "Zinder", "Maradi",
	"Dakar", "Thies", "Saint-Louis",
	"Lome", "Sokode", "Kara",
}
