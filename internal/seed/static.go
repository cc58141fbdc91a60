// ABOUTME: Static fallback data when OpenAI API key is not available.
// ABOUTME: Curated rows per table, with per-kind values filling every other field.

package seed

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/record"
)

// curated holds hand-written values for the fields that matter most per
// table. Fields not listed come from the per-kind generator.
var curated = map[string][]record.Row{
	"admins": {
		record.FromPairs("email", "camila.rojas@ekoru.cl", "first_name", "Camila", "last_name", "Rojas", "role", "super_admin"),
		record.FromPairs("email", "matias.munoz@ekoru.cl", "first_name", "Matías", "last_name", "Muñoz", "role", "admin"),
		record.FromPairs("email", "valentina.soto@ekoru.cl", "first_name", "Valentina", "last_name", "Soto", "role", "editor"),
		record.FromPairs("email", "benjamin.diaz@ekoru.cl", "first_name", "Benjamín", "last_name", "Díaz", "role", "editor"),
		record.FromPairs("email", "isidora.vega@ekoru.cl", "first_name", "Isidora", "last_name", "Vega", "role", "admin"),
	},
	"countries": {
		record.FromPairs("name", "Chile", "code", "CL"),
		record.FromPairs("name", "Argentina", "code", "AR"),
		record.FromPairs("name", "Perú", "code", "PE"),
		record.FromPairs("name", "Colombia", "code", "CO"),
		record.FromPairs("name", "México", "code", "MX"),
	},
	"regions": {
		record.FromPairs("name", "Metropolitana", "ordinal", 13),
		record.FromPairs("name", "Valparaíso", "ordinal", 5),
		record.FromPairs("name", "Biobío", "ordinal", 8),
		record.FromPairs("name", "La Araucanía", "ordinal", 9),
		record.FromPairs("name", "Los Lagos", "ordinal", 10),
	},
	"cities": {
		record.FromPairs("name", "Santiago", "latitude", -33.45, "longitude", -70.66),
		record.FromPairs("name", "Viña del Mar", "latitude", -33.02, "longitude", -71.55),
		record.FromPairs("name", "Concepción", "latitude", -36.82, "longitude", -73.04),
		record.FromPairs("name", "Temuco", "latitude", -38.74, "longitude", -72.6),
		record.FromPairs("name", "Puerto Montt", "latitude", -41.47, "longitude", -72.94),
	},
	"categories": {
		record.FromPairs("name", "Hogar y jardín", "description", "Productos reutilizables para la casa y el huerto."),
		record.FromPairs("name", "Moda circular", "description", "Ropa de segunda mano y fibras orgánicas."),
		record.FromPairs("name", "Alimentos", "description", "Alimentos locales, a granel y sin envases."),
		record.FromPairs("name", "Cuidado personal", "description", "Cosmética sólida y biodegradable."),
		record.FromPairs("name", "Cero residuos", "description", "Alternativas a los plásticos de un solo uso."),
	},
	"subcategories": {
		record.FromPairs("name", "Composteras"),
		record.FromPairs("name", "Algodón orgánico"),
		record.FromPairs("name", "Granel"),
		record.FromPairs("name", "Shampoo sólido"),
		record.FromPairs("name", "Bolsas reutilizables"),
	},
	"blog_posts": {
		record.FromPairs("title", "Cómo empezar a compostar en departamento",
			"content", "Compostar en espacios pequeños es posible con una vermicompostera y algo de constancia."),
		record.FromPairs("title", "Cinco marcas chilenas de moda circular",
			"content", "Conoce a las emprendedoras que están dando una segunda vida a la ropa en Chile."),
		record.FromPairs("title", "Guía para comprar a granel",
			"content", "Lleva tus propios frascos y bolsas de género y reduce los envases de tu despensa."),
		record.FromPairs("title", "¿Qué significa la huella de carbono de un producto?",
			"content", "La huella de carbono mide los gases de efecto invernadero emitidos en todo el ciclo de vida."),
		record.FromPairs("title", "Reciclaje de vidrio en regiones",
			"content", "Revisamos los puntos limpios que reciben vidrio desde Arica hasta Punta Arenas."),
	},
	"sustainability_criteria": {
		record.FromPairs("name", "Materiales reciclados", "pillar", "environmental", "weight", 25),
		record.FromPairs("name", "Comercio justo", "pillar", "social", "weight", 20),
		record.FromPairs("name", "Transparencia de la cadena", "pillar", "governance", "weight", 15),
		record.FromPairs("name", "Empaque compostable", "pillar", "environmental", "weight", 25),
		record.FromPairs("name", "Producción local", "pillar", "social", "weight", 15),
	},
	"eco_metrics": {
		record.FromPairs("name", "CO2 evitado", "unit", "kg_co2e", "value", 1250.5, "source_url", "https://ekoru.cl/impacto/co2"),
		record.FromPairs("name", "Agua ahorrada", "unit", "liters", "value", 30400, "source_url", "https://ekoru.cl/impacto/agua"),
		record.FromPairs("name", "Energía renovable", "unit", "kwh", "value", 820, "source_url", "https://ekoru.cl/impacto/energia"),
		record.FromPairs("name", "Envases evitados", "unit", "units", "value", 5400, "source_url", "https://ekoru.cl/impacto/envases"),
		record.FromPairs("name", "CO2 compensado", "unit", "kg_co2e", "value", 310, "source_url", "https://ekoru.cl/impacto/compensacion"),
	},
}

var seedEpoch = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// StaticRows returns count deterministic rows for a table. Relation fields
// are left out; slugs follow the row's name or title.
func StaticRows(tableName string, descriptors []fields.Descriptor, count int) []record.Row {
	pool := curated[tableName]
	rows := make([]record.Row, count)
	for i := range rows {
		row := record.New(len(descriptors))
		var base record.Row
		if len(pool) > 0 {
			base = pool[i%len(pool)]
		}
		round := 0
		if len(pool) > 0 {
			round = i / len(pool)
		}

		for _, d := range descriptors {
			if v, ok := base.Get(d.Name); ok {
				row.Set(d.Name, distinct(d, v, round))
				continue
			}
			if v := fields.Visit[any](d, staticValue{table: tableName, i: i}); v != nil {
				row.Set(d.Name, v)
			}
		}

		if row.Has("slug") {
			source := row.Value("name")
			if source == nil {
				source = row.Value("title")
			}
			if source != nil {
				row.Set("slug", slugify(record.Stringify(source)))
			}
		}
		rows[i] = row
	}
	return rows
}

// distinct keeps curated text unique once the pool wraps around.
func distinct(d fields.Descriptor, v any, round int) any {
	s, ok := v.(string)
	if !ok || round == 0 {
		return v
	}
	switch d.Kind {
	case fields.KindEmail:
		local, domain, _ := strings.Cut(s, "@")
		return fmt.Sprintf("%s%d@%s", local, round+1, domain)
	case fields.KindText:
		if d.Validation != nil && d.Validation.Pattern != "" {
			return v
		}
		return fmt.Sprintf("%s %d", s, round+1)
	}
	return v
}

// staticValue produces the i-th sample value for each kind.
type staticValue struct {
	table string
	i     int
}

func (s staticValue) Text(d fields.Descriptor) any {
	return fmt.Sprintf("%s %d", d.DisplayLabel(), s.i+1)
}

func (s staticValue) Number(d fields.Descriptor) any {
	v := float64(s.i + 1)
	if d.Min != nil {
		v = *d.Min + float64(s.i)
	}
	if d.Max != nil && v > *d.Max {
		v = *d.Max
	}
	return v
}

func (s staticValue) Email(fields.Descriptor) any {
	return fmt.Sprintf("contacto%d@ekoru.cl", s.i+1)
}

func (s staticValue) Password(fields.Descriptor) any {
	return fmt.Sprintf("ekoru-seed-%04d", s.i+1)
}

func (s staticValue) Textarea(d fields.Descriptor) any {
	return fmt.Sprintf("Texto de ejemplo %d para %s en el marketplace Ekoru.", s.i+1, strings.ToLower(d.DisplayLabel()))
}

func (s staticValue) Select(d fields.Descriptor) any {
	if len(d.Options) == 0 {
		return nil
	}
	return d.Options[s.i%len(d.Options)].Value
}

func (s staticValue) Multiselect(d fields.Descriptor) any {
	if len(d.Options) == 0 {
		return []any{}
	}
	picked := []any{d.Options[s.i%len(d.Options)].Value}
	if len(d.Options) > 1 {
		picked = append(picked, d.Options[(s.i+1)%len(d.Options)].Value)
	}
	return picked
}

func (s staticValue) Boolean(fields.Descriptor) any {
	return s.i%3 != 2
}

func (s staticValue) Date(fields.Descriptor) any {
	return seedEpoch.AddDate(0, 0, 7*s.i).Format("2006-01-02")
}

func (s staticValue) Datetime(fields.Descriptor) any {
	return seedEpoch.AddDate(0, 0, 7*s.i).Format("2006-01-02T15:04")
}

func (s staticValue) JSON(fields.Descriptor) any {
	return map[string]any{"source": "seed", "index": s.i + 1}
}

func (s staticValue) Array(fields.Descriptor) any {
	return []any{fmt.Sprintf("%d", 8320000+s.i*10000)}
}

func (s staticValue) Relation(fields.Descriptor) any {
	return nil
}

func (s staticValue) Image(fields.Descriptor) any {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/400/300", s.table, s.i+1)
}

// slugify lowercases s, drops accents and joins words with dashes.
func slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case sb.Len() > 0 && !dash:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
