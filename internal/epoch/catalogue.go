package epoch

// Builtin returns the default catalogue, nearest layer first. Distances are
// measured from 2025 to the middle of each period.
func Builtin() []Epoch {
	return []Epoch{
		{
			Key:         "present",
			Label:       "Present",
			Period:      "2020-2025",
			Description: "Clear, vivid colors, the world as it is",
			Distance:    2.5,
			Intensity:   1.0,
			Tags:        []string{"vivid", "traffic", "electronic", "voices"},
			Visual:      Visual{Saturation: 1, Contrast: 1},
			Soundscape:  []string{"Modern urban traffic", "Smartphone notifications", "Electric scooters", "Multilingual conversations"},
			AudioPrompt: "Modern city ambiance with car traffic, smartphone notification sounds, electric scooter whirring, and multilingual street conversations",
		},
		{
			Key:         "recent_memory",
			Label:       "Recent Memory",
			Period:      "1990-2010",
			Description: "Slightly veiled, tinted with nostalgia",
			Distance:    25,
			Intensity:   0.88,
			Tags:        []string{"warm", "engines", "ring", "voices"},
			Visual:      Visual{Sepia: 0.15, Blur: 0.5, Grain: 0.05, Vignette: 0.1, Saturation: 0.9, Contrast: 0.95, Fade: 0.05},
			Soundscape:  []string{"Older car engines", "Walkman and CD players", "Phone booths", "Landline phone ringtones"},
			AudioPrompt: "1990s-2000s urban ambiance with older car engines, faint music from portable CD players, phone booth sounds, and rotary phone ringing in distance",
		},
		{
			Key:         "previous_generation",
			Label:       "Previous Generation",
			Period:      "1960-1985",
			Description: "Golden tints, silver film grain",
			Distance:    52.5,
			Intensity:   0.76,
			Tags:        []string{"golden", "engines", "radio", "accordion", "bells"},
			Visual:      Visual{Sepia: 0.3, Blur: 1, Grain: 0.12, Vignette: 0.2, Saturation: 0.75, Contrast: 0.9, Fade: 0.1},
			Soundscape:  []string{"Citroën 2CV and DS engines", "Transistor radios", "Accordion in cafés", "Church bells", "Street vendors"},
			AudioPrompt: "1960s-70s French atmosphere with vintage Citroën engines, transistor radio playing chanson française, distant accordion music, church bells, and street vendor calls",
		},
		{
			Key:         "interwar",
			Label:       "Interwar Period",
			Period:      "1920-1955",
			Description: "Ghostly black and white, blurred presences",
			Distance:    87.5,
			Intensity:   0.64,
			Tags:        []string{"monochrome", "hooves", "tram", "hiss", "jazz"},
			Visual:      Visual{Sepia: 0.5, Blur: 1.5, Grain: 0.2, Vignette: 0.35, Saturation: 0.5, Contrast: 0.85, Fade: 0.2},
			Soundscape:  []string{"Horse hooves on cobblestones", "Electric tramways", "Gas street lamps hissing", "Newspaper criers", "Distant jazz music"},
			AudioPrompt: "1920s-40s urban soundscape with horse hooves on cobblestones, electric tramway bells, gas lamp hissing, newspaper boy shouting headlines, and distant jazz from a café",
		},
		{
			Key:         "belle_epoque",
			Label:       "Belle Époque",
			Period:      "1880-1914",
			Description: "Pronounced sepia, silhouettes in crinolines",
			Distance:    128,
			Intensity:   0.52,
			Tags:        []string{"sepia", "hooves", "voices", "organ", "water"},
			Visual:      Visual{Sepia: 0.7, Blur: 2, Grain: 0.25, Vignette: 0.45, Saturation: 0.3, Contrast: 0.8, Fade: 0.3},
			Soundscape:  []string{"Horse-drawn carriages", "Street criers", "Café-concerts", "Barrel organs", "Public fountains"},
			AudioPrompt: "1880s-1900s Belle Époque ambiance with horse carriages, street vendors singing their wares, distant café-concert music, barrel organ melody, and fountain splashing",
		},
		{
			Key:         "nineteenth_century",
			Label:       "19th Century",
			Period:      "1820-1870",
			Description: "Daguerreotype image, dissolving forms",
			Distance:    180,
			Intensity:   0.40,
			Tags:        []string{"daguerreotype", "hammer", "bells", "voices", "wind"},
			Visual:      Visual{Sepia: 0.85, Blur: 3, Grain: 0.35, Vignette: 0.6, Saturation: 0.15, Contrast: 0.7, Fade: 0.45},
			Soundscape:  []string{"Haussmann construction work", "Blacksmiths and farriers", "Multiple church bells", "Workers' songs", "Wind in alleyways"},
			AudioPrompt: "Mid-1800s soundscape with distant construction hammering, blacksmith anvil strikes, overlapping church bells, workers singing, and wind whistling through narrow streets",
		},
		{
			Key:         "ancient_times",
			Label:       "Ancient Times",
			Period:      "Before 1820",
			Description: "Almost invisible, at the limits of perception",
			Distance:    300,
			Intensity:   0.28,
			Tags:        []string{"ashen", "bells", "voices", "wind", "silence"},
			Visual:      Visual{Sepia: 0.95, Blur: 5, Grain: 0.5, Vignette: 0.75, Saturation: 0.05, Contrast: 0.5, Fade: 0.7},
			Soundscape:  []string{"Distant medieval bells", "Ancient markets", "Wind through stones", "Indistinct murmurs", "Deep silence"},
			AudioPrompt: "Pre-1820 ancient atmosphere with very distant medieval church bells, faint market murmurs, wind through old stone buildings, indistinct whispered voices, and profound silence between sounds",
		},
	}
}
