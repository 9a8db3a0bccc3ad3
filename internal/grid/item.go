package grid

type ItemKind string

const (
	ItemStartPoint ItemKind = "startPoint"
	ItemMystery    ItemKind = "mystery"
	ItemFlag       ItemKind = "flag"
	ItemChip       ItemKind = "chip"
	ItemSword      ItemKind = "sword"
	ItemShield     ItemKind = "shield"
	ItemBoots      ItemKind = "boots"
	ItemPotion     ItemKind = "potion"
	ItemAmulet     ItemKind = "amulet"
)

// EffectKinds is the fixed catalog of collectible effect items a mystery box
// can turn into.
var EffectKinds = []ItemKind{ItemChip, ItemSword, ItemShield, ItemBoots, ItemPotion, ItemAmulet}

type Item struct {
	ID       int      `json:"id"`
	Kind     ItemKind `json:"kind"`
	OnGrid   bool     `json:"isOnGrid"`
	Position Coord    `json:"position"`
}

// Collectible reports whether a player walking onto the item picks it up.
func (it *Item) Collectible() bool {
	return it.Kind != ItemStartPoint && it.Kind != ItemMystery
}

// Modifier is the attribute change an item grants while held.
type Modifier struct {
	Offense int `json:"offense"`
	Defense int `json:"defense"`
	Speed   int `json:"speed"`
	Life    int `json:"life"`
}

func (k ItemKind) Modifier() Modifier {
	switch k {
	case ItemSword:
		return Modifier{Offense: 2, Defense: -1}
	case ItemShield:
		return Modifier{Defense: 2, Speed: -1}
	case ItemBoots:
		return Modifier{Speed: 2, Offense: -1}
	case ItemPotion:
		return Modifier{Life: 2}
	case ItemAmulet:
		return Modifier{Offense: 1, Defense: 1}
	default:
		return Modifier{}
	}
}

// ItemBudget is how many effect items and mystery boxes a map of the given size
// ships with: one mystery box per start point plus the fixed effect catalog.
func ItemBudget(size int) int {
	return MaxPlayers(size) + len(EffectKinds)
}
