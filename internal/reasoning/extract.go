package reasoning

import "strings"

// Extract 从原始文本中抽取知识库里出现过的概念。
// 采用不区分大小写的子串匹配，不做分词边界处理，
// 重叠或互为子串的概念全部输出，由实体映射阶段决定取舍。
func (kb *KnowledgeBase) Extract(text string) []string {
	lower := strings.ToLower(text)

	var concepts []string
	for _, name := range kb.order {
		if strings.Contains(lower, strings.ToLower(name)) || strings.Contains(text, name) {
			concepts = append(concepts, name)
		}
	}
	return concepts
}
