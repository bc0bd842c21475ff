package sqpack

// Category identifies one of the fixed top-level data categories of a
// SqPack database, e.g. "exd" or "chara".
type Category struct {
	Name string
	ID   uint8
}

// Repository is a single top-level directory within a SqPack database.
type Repository struct {
	Name string
	ID   uint8
	Path string
}

// categories is the fixed category table described in the on-disk format.
// It is not configurable: a category's ID is part of the wire format, not a
// policy choice.
var categories = []Category{
	{Name: "common", ID: 0x00},
	{Name: "bgcommon", ID: 0x01},
	{Name: "bg", ID: 0x02},
	{Name: "cut", ID: 0x03},
	{Name: "chara", ID: 0x04},
	{Name: "shader", ID: 0x05},
	{Name: "ui", ID: 0x06},
	{Name: "sound", ID: 0x07},
	{Name: "vfx", ID: 0x08},
	{Name: "ui_script", ID: 0x09},
	{Name: "exd", ID: 0x0a},
	{Name: "game_script", ID: 0x0b},
	{Name: "music", ID: 0x0c},
	{Name: "sqpack_test", ID: 0x12},
	{Name: "debug", ID: 0x13},
}

// Categories returns the fixed SqPack category table.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func categoryByName(name string) (Category, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
