package catalog

import "github.com/shopspring/decimal"

// SeedCategories returns the starter menu categories.
func SeedCategories() []Category {
	return []Category{
		{ID: 1, Name: "Coffee", Description: "Espresso-based classics", Kind: KindHotDrinks, Active: true},
		{ID: 2, Name: "Cold Drinks", Description: "Iced and blended drinks", Kind: KindColdDrinks, Active: true},
		{ID: 3, Name: "Desserts", Description: "Cakes and sweets", Kind: KindDesserts, Active: true},
		{ID: 4, Name: "Teas", Description: "Loose leaf and herbal teas", Kind: KindHotDrinks, Active: false},
		{ID: 5, Name: "Pastries", Description: "Baked every morning", Kind: KindSnacks, Active: true},
		{ID: 6, Name: "Lunch", Description: "Sandwiches and salads", Kind: KindLunch, Active: true},
	}
}

// SeedProducts returns the starter menu products.
func SeedProducts() []Product {
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return []Product{
		{ID: 1, Name: "Americano", Description: "Classic black coffee", Price: price("25.00"), CategoryID: 1, Available: true, Size: SizeMedium, Ingredients: []string{"coffee", "water"}, Calories: 5},
		{ID: 2, Name: "Cappuccino", Description: "Espresso with foamed milk", Price: price("35.00"), CategoryID: 1, Available: true, Size: SizeLarge, Ingredients: []string{"coffee", "milk", "foam"}, Calories: 120},
		{ID: 3, Name: "Latte", Description: "Espresso with steamed milk", Price: price("40.00"), CategoryID: 1, Available: true, Size: SizeLarge, Ingredients: []string{"coffee", "milk"}, Calories: 150},
		{ID: 4, Name: "Chocolate Frappe", Description: "Blended iced chocolate drink", Price: price("55.00"), CategoryID: 2, Available: true, Size: SizeLarge, Ingredients: []string{"coffee", "chocolate", "ice", "cream"}, Calories: 320},
		{ID: 5, Name: "Orange Juice", Description: "Fresh squeezed", Price: price("30.00"), CategoryID: 2, Available: true, Size: SizeMedium, Ingredients: []string{"orange"}, Calories: 110},
		{ID: 6, Name: "Croissant", Description: "Butter croissant", Price: price("28.00"), CategoryID: 5, Available: true, Ingredients: []string{"flour", "butter", "egg"}, Calories: 231},
		{ID: 7, Name: "Cheesecake", Description: "Strawberry cheesecake", Price: price("45.00"), CategoryID: 3, Available: false, Ingredients: []string{"cream cheese", "strawberries", "biscuit"}, Calories: 410},
		{ID: 8, Name: "Club Sandwich", Description: "Chicken, bacon and greens", Price: price("65.00"), CategoryID: 6, Available: true, Ingredients: []string{"bread", "chicken", "bacon", "lettuce", "tomato"}, Calories: 520},
	}
}
