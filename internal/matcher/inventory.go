package matcher

// Inventory 模板中的占位符清单
type Inventory struct {
	// Names 按出现顺序排列的全部占位符名称
	Names []string
	// Split 至少有一处不在单个文本块内（被格式边界拆开或位于超链接等嵌套结构中）、合并时不会被替换的占位符
	Split []string
}

// BuildInventory 比较整段纯文本和逐个文本块中的占位符出现次数。
// 纯文本中出现次数多于文本块中的，说明有占位符跨越了文本块
func BuildInventory(rawText string, runTexts []string) *Inventory {
	inventory := &Inventory{Names: ExtractNames(rawText)}

	rawStats := GetMatchStats(rawText)
	runStats := make(map[string]int)
	for _, text := range runTexts {
		for name, count := range GetMatchStats(text) {
			runStats[name] += count
		}
	}

	for _, name := range inventory.Names {
		if rawStats[name] > runStats[name] {
			inventory.Split = append(inventory.Split, name)
		}
	}
	return inventory
}
