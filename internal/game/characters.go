package game

// Characters is the avatar catalog every room picks from.
var Characters = []string{
	"knight", "archer", "mage", "rogue", "cleric", "barbarian",
	"paladin", "ranger", "druid", "monk", "bard", "necromancer",
}

func IsCharacter(id string) bool {
	for _, c := range Characters {
		if c == id {
			return true
		}
	}
	return false
}

var botNames = []string{
	"Ada", "Bram", "Cyra", "Dorn", "Elva", "Fenn", "Gale", "Hale", "Iris", "Joss",
}
