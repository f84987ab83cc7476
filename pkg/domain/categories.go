package domain

// ExpenseCategory groups owner expenses for summaries.
type ExpenseCategory string

// Supported expense categories.
const (
	CategoryGroceries   ExpenseCategory = "Groceries"
	CategoryElectricity ExpenseCategory = "Electricity"
	CategoryWater       ExpenseCategory = "Water"
	CategoryMaintenance ExpenseCategory = "Maintenance"
	CategorySalary      ExpenseCategory = "Salary"
	CategoryInternet    ExpenseCategory = "Internet"
	CategoryRent        ExpenseCategory = "Rent"
	CategoryOther       ExpenseCategory = "Other"
)

// CategoryInfo carries the display metadata attached to a category.
type CategoryInfo struct {
	Category ExpenseCategory `json:"category"`
	Icon     string          `json:"icon"`
	Color    string          `json:"color"`
}

var categoryInfo = map[ExpenseCategory]CategoryInfo{
	CategoryGroceries:   {Category: CategoryGroceries, Icon: "cart", Color: "#4CAF50"},
	CategoryElectricity: {Category: CategoryElectricity, Icon: "flash", Color: "#FFC107"},
	CategoryWater:       {Category: CategoryWater, Icon: "water", Color: "#2196F3"},
	CategoryMaintenance: {Category: CategoryMaintenance, Icon: "construct", Color: "#FF5722"},
	CategorySalary:      {Category: CategorySalary, Icon: "people", Color: "#9C27B0"},
	CategoryInternet:    {Category: CategoryInternet, Icon: "wifi", Color: "#00BCD4"},
	CategoryRent:        {Category: CategoryRent, Icon: "home", Color: "#795548"},
	CategoryOther:       {Category: CategoryOther, Icon: "ellipsis-horizontal", Color: "#607D8B"},
}

// ExpenseCategories lists the categories in display order.
var ExpenseCategories = []ExpenseCategory{
	CategoryGroceries,
	CategoryElectricity,
	CategoryWater,
	CategoryMaintenance,
	CategorySalary,
	CategoryInternet,
	CategoryRent,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c ExpenseCategory) Valid() bool {
	_, ok := categoryInfo[c]
	return ok
}

// Info returns display metadata, falling back to the Other category.
func (c ExpenseCategory) Info() CategoryInfo {
	if info, ok := categoryInfo[c]; ok {
		return info
	}
	info := categoryInfo[CategoryOther]
	info.Category = c
	return info
}
