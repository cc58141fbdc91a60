// ABOUTME: Static field configuration for the Ekoru marketplace tables.
// ABOUTME: Admins, locations, product taxonomy, blog and sustainability metrics.

package fields

func init() {
	Register("admins", []Descriptor{
		{Name: "email", Label: "Email", Kind: KindEmail, Required: true, Placeholder: "admin@ekoru.cl"},
		{Name: "first_name", Label: "First name", Kind: KindText, Required: true},
		{Name: "last_name", Label: "Last name", Kind: KindText, Required: true},
		{Name: "password", Label: "Password", Kind: KindPassword,
			Validation: &Rules{MinLength: Int(8), Message: "Password must have at least 8 characters"}},
		{Name: "role", Label: "Role", Kind: KindSelect, Required: true, Default: "admin", Options: []Option{
			{Label: "Super admin", Value: "super_admin"},
			{Label: "Admin", Value: "admin"},
			{Label: "Editor", Value: "editor"},
		}},
		{Name: "is_active", Label: "Active", Kind: KindBoolean, Default: true},
		{Name: "avatar", Label: "Avatar", Kind: KindImage},
	})

	Register("countries", []Descriptor{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "code", Label: "ISO code", Kind: KindText, Required: true, Placeholder: "CL",
			Validation: &Rules{Pattern: `^[A-Z]{2}$`, Message: "ISO code must be two uppercase letters"}},
		{Name: "is_active", Label: "Active", Kind: KindBoolean, Default: true},
	})

	Register("regions", []Descriptor{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "country_id", Label: "Country", Kind: KindRelation, Required: true, RelatedTable: "countries"},
		{Name: "ordinal", Label: "Ordinal", Kind: KindNumber, Min: Float(1)},
	})

	Register("cities", []Descriptor{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "region_id", Label: "Region", Kind: KindRelation, Required: true, RelatedTable: "regions"},
		{Name: "zip_codes", Label: "Zip codes", Kind: KindArray, Placeholder: "8320000, 8330000"},
		{Name: "latitude", Label: "Latitude", Kind: KindNumber, Min: Float(-90), Max: Float(90)},
		{Name: "longitude", Label: "Longitude", Kind: KindNumber, Min: Float(-180), Max: Float(180)},
	})

	Register("categories", []Descriptor{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "slug", Label: "Slug", Kind: KindText, Required: true,
			Validation: &Rules{Pattern: `^[a-z0-9]+(-[a-z0-9]+)*$`, Message: "Slug may only contain lowercase letters, digits and dashes"}},
		{Name: "description", Label: "Description", Kind: KindTextarea, Validation: &Rules{MaxLength: Int(500)}},
		{Name: "image", Label: "Image", Kind: KindImage},
		{Name: "position", Label: "Position", Kind: KindNumber, Default: 0, Min: Float(0)},
		{Name: "is_active", Label: "Active", Kind: KindBoolean, Default: true},
	})

	Register("subcategories", []Descriptor{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "category_id", Label: "Category", Kind: KindRelation, Required: true, RelatedTable: "categories"},
		{Name: "slug", Label: "Slug", Kind: KindText, Required: true,
			Validation: &Rules{Pattern: `^[a-z0-9]+(-[a-z0-9]+)*$`, Message: "Slug may only contain lowercase letters, digits and dashes"}},
		{Name: "is_active", Label: "Active", Kind: KindBoolean, Default: true},
	})

	Register("blog_posts", []Descriptor{
		{Name: "title", Label: "Title", Kind: KindText, Required: true, Validation: &Rules{MaxLength: Int(160)}},
		{Name: "slug", Label: "Slug", Kind: KindText, Required: true,
			Validation: &Rules{Pattern: `^[a-z0-9]+(-[a-z0-9]+)*$`}},
		{Name: "excerpt", Label: "Excerpt", Kind: KindTextarea, Validation: &Rules{MaxLength: Int(300)}},
		{Name: "content", Label: "Content", Kind: KindTextarea, Required: true, Validation: &Rules{MinLength: Int(20)}},
		{Name: "cover_image", Label: "Cover image", Kind: KindImage},
		{Name: "tags", Label: "Tags", Kind: KindMultiselect, Options: []Option{
			{Label: "Sustainability", Value: "sustainability"},
			{Label: "Circular economy", Value: "circular-economy"},
			{Label: "Recycling", Value: "recycling"},
			{Label: "Local business", Value: "local-business"},
			{Label: "News", Value: "news"},
		}},
		{Name: "published_at", Label: "Published at", Kind: KindDatetime},
		{Name: "is_published", Label: "Published", Kind: KindBoolean, Default: false},
		{Name: "metadata", Label: "Metadata (JSON)", Kind: KindJSON, Placeholder: `{"seo_title": ""}`},
		{Name: "author_id", Label: "Author", Kind: KindRelation, RelatedTable: "admins", RelatedLabelField: "email", Hidden: true},
	})

	Register("sustainability_criteria", []Descriptor{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "description", Label: "Description", Kind: KindTextarea},
		{Name: "pillar", Label: "Pillar", Kind: KindSelect, Required: true, Options: []Option{
			{Label: "Environmental", Value: "environmental"},
			{Label: "Social", Value: "social"},
			{Label: "Governance", Value: "governance"},
		}},
		{Name: "weight", Label: "Weight (%)", Kind: KindNumber, Required: true, Min: Float(0), Max: Float(100)},
		{Name: "icon", Label: "Icon", Kind: KindImage},
	})

	Register("eco_metrics", []Descriptor{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "unit", Label: "Unit", Kind: KindSelect, Required: true, Options: []Option{
			{Label: "kg CO2e", Value: "kg_co2e"},
			{Label: "Liters", Value: "liters"},
			{Label: "kWh", Value: "kwh"},
			{Label: "Units", Value: "units"},
		}},
		{Name: "value", Label: "Value", Kind: KindNumber, Required: true, Min: Float(0)},
		{Name: "measured_on", Label: "Measured on", Kind: KindDate, Required: true},
		{Name: "source_url", Label: "Source URL", Kind: KindText,
			Validation: &Rules{Pattern: `^https?://`, Message: "Source URL must start with http:// or https://"}},
		{Name: "details", Label: "Details (JSON)", Kind: KindJSON},
		{Name: "criterion_id", Label: "Criterion", Kind: KindRelation, RelatedTable: "sustainability_criteria", Disabled: true},
	})
}
