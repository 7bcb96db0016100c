package constants

// ItemType classifies a published catalog entry.
type ItemType string

const (
	ItemTypeDrink      ItemType = "drink"
	ItemTypeMainCourse ItemType = "main_course"
	ItemTypeDessert    ItemType = "dessert"
)

// DefaultCategory is used when neither the parser nor the reviewer supplied
// a category for an item that is about to be published.
const DefaultCategory = "Sonstige"

// CategoryHeaders is the closed list of German menu-section nouns a line
// must match (case- and accent-insensitively) to count as a category header.
// Extending this list is the only way to teach the scanner a new section.
var CategoryHeaders = []string{
	"vorspeise", "vorspeisen",
	"hauptgericht", "hauptgerichte",
	"hauptspeise", "hauptspeisen",
	"beilage", "beilagen",
	"salat", "salate",
	"suppe", "suppen",
	"dessert", "desserts",
	"nachspeise", "nachspeisen",
	"nachtisch",
	"getränk", "getränke",
	"alkoholfreie getränke",
	"warme getränke",
	"pizza", "pizzen",
	"pasta",
	"spezialitäten",
	"vegetarisch", "vegan",
	"snacks",
}

// DrinkKeywords mark a dish as a drink when one of them ends a word of its
// lowercased name.
var DrinkKeywords = []string{
	"cola", "wasser", "saft", "schorle", "bier", "wein", "sekt",
	"kaffee", "espresso", "cappuccino", "latte", "tee", "limonade",
	"spezi", "radler", "schnaps", "likör",
}

// DessertKeywords mark a dish as a dessert when one of them ends a word of its
// lowercased name.
var DessertKeywords = []string{
	"eis", "kuchen", "torte", "tiramisu", "pudding", "creme",
	"strudel", "mousse", "sorbet", "dessert", "nachtisch",
}
