package chat

type language int

const (
	languageEnglish language = iota
	languageChinese
)

// Fallback wording stays clear of the phrases the extraction rules look for
// (gender words, "named", 叫, ages with units) because assistant turns are
// scanned along with user turns.
type fallbackTemplate struct {
	needName      string
	needAge       string
	needGender    string
	fever         string
	cough         string
	general       string
	doctorsHeader string
	apology       string
}

var fallbackTemplates = map[language]fallbackTemplate{
	languageEnglish: {
		needName:   "Hello! I'm here to help you with your child's health. To give the best advice, could you please tell me your child's name?",
		needAge:    "Thank you! Could you please tell me %s's date of birth or age?",
		needGender: "Thanks! Could you please tell me %s's gender?",
		fever: `I understand you're concerned about %s's fever. Here are some general suggestions:

🩺 What You Can Do:
• Monitor the temperature regularly
• Keep your child hydrated with water or electrolyte solutions
• Ensure they get plenty of rest
• Use age-appropriate fever reducers if needed (consult a doctor for dosage)

⚠️ When to Seek Medical Attention:
• Fever persists for more than 3 days
• Temperature is very high (above 104°F/40°C)
• Signs of dehydration appear
• Your child appears very unwell or lethargic

Would you like me to connect you with one of our pediatricians for a consultation?`,
		cough: `I understand %s has a cough. Here are some general suggestions:

🩺 What You Can Do:
• Keep your child hydrated
• Use a humidifier in their room
• Ensure they get plenty of rest
• Avoid irritants like smoke

⚠️ When to Seek Medical Attention:
• Cough persists for more than a week
• Breathing becomes difficult
• Cough comes with a high fever
• Your child appears distressed

Would you like me to connect you with one of our pediatricians?`,
		general:       "I understand your concern about %s. To give the best advice, could you tell me more about the specific symptoms or concerns you have?",
		doctorsHeader: "Pediatricians available for a consultation:",
		apology:       "Sorry, I couldn't process that just now. Please try again in a moment.",
	},
	languageChinese: {
		needName:   "您好！我可以帮助您了解宝宝的健康状况。为了给出更合适的建议，请告诉我宝宝的名字。",
		needAge:    "谢谢！请告诉我%s的出生日期或年龄。",
		needGender: "谢谢！请告诉我%s的性别。",
		fever: `我理解您担心%s发烧的情况。以下是一些一般性建议：

🩺 您可以这样做：
• 定时测量体温
• 补充水分或电解质溶液
• 保证充足的休息
• 必要时使用适合年龄的退烧药（剂量请咨询医生）

⚠️ 出现以下情况请及时就医：
• 发烧持续超过3天
• 体温很高（超过40°C）
• 出现脱水迹象
• 精神很差或嗜睡

需要我为您联系我们的儿科医生吗？`,
		cough: `我理解%s有咳嗽的情况。以下是一些一般性建议：

🩺 您可以这样做：
• 多补充水分
• 在房间里使用加湿器
• 保证充足的休息
• 避免烟雾等刺激物

⚠️ 出现以下情况请及时就医：
• 咳嗽持续超过一周
• 呼吸困难
• 咳嗽伴有高烧
• 明显不适或烦躁

需要我为您联系我们的儿科医生吗？`,
		general:       "我理解您对%s的关心。为了给出更合适的建议，能否详细说说具体的症状或担忧？",
		doctorsHeader: "可以为您推荐以下儿科医生：",
		apology:       "抱歉，暂时无法处理您的消息，请稍后再试。",
	},
}
