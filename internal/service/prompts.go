package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const generateSystemPrompt = `You are an expert web developer. Generate a complete, beautiful, modern HTML webpage based on the user's prompt.

REQUIREMENTS:
- Return ONLY valid HTML code, no explanations or markdown
- Include all CSS inline within a <style> tag
- DO NOT include any <script> tags - create static/CSS-only designs
- Use modern CSS features: flexbox, grid, gradients, shadows, animations
- Make it responsive and mobile-friendly
- Use a beautiful color palette that matches the theme
- Add smooth CSS transitions and hover effects (no JavaScript)
- Include proper meta tags for viewport
- Make it visually stunning and professional
- For interactivity, use CSS-only techniques like :hover, :focus, :checked, etc.

The HTML should be complete and ready to render in a browser iframe.`

const enhanceSystemPrompt = `You are an expert website design consultant. Your job is to take a user's simple website idea and enhance it into a detailed, professional prompt that will produce a stunning, visually captivating website.

RULES:
- Return ONLY the enhanced prompt text, no explanations or markdown formatting
- Keep the user's original intent and theme
- Your response MUST be under 1500 characters total — be concise and impactful
- Focus on: layout structure, a specific bold color palette (hex codes), typography pairing, 3-5 key sections, and one signature visual effect
- Suggest modern, attention-grabbing patterns (hero with gradient overlay, bento grids, animated stats, floating cards, parallax, glassmorphism)
- Emphasize what makes users STAY: clear visual hierarchy, compelling CTAs, smooth micro-interactions, social proof sections
- Make it sound like a creative brief, not a checklist
- Do NOT include technical instructions about HTML/CSS — focus purely on the design vision and user experience`

// readyMarker отделяет реплику ассистента от итогового промпта.
const readyMarker = "[READY_TO_GENERATE]"

const conversationSystemPrompt = `You are a helpful AI assistant that helps users create websites. You're having a voice conversation to understand what kind of website they want to create.

Your goal is to:
1. Understand what type of website they want (portfolio, landing page, blog, e-commerce, etc.)
2. Ask about their preferred style, colors, and content
3. When you have enough information, summarize the website requirements clearly

Keep responses conversational, friendly, and concise (2-3 sentences max). Ask one question at a time.

If the user shares that they're uploading images or PDFs as references, acknowledge them and incorporate those details into your understanding.

When you feel you have enough information to create the website, end your response with: ` + readyMarker + ` followed by a clear, detailed prompt that can be used to generate the website.`

// Параметры запросов к модели.
const (
	generateMaxTokens     = 8000
	generateTemperature   = 0.7
	enhanceMaxTokens      = 600
	enhanceTemperature    = 0.8
	conversationMaxTokens = 500
	conversationTemp      = 0.7
)

const (
	defaultAvatarStyle = "modern"
	maxAvatarPrompt    = 500
	maxAvatarStyle     = 100
)

func generateUserMessage(prompt, references string) string {
	msg := "Create a website with the following description: " + prompt
	if references != "" {
		msg += "\n\n" + references
	}

	return msg
}

func enhanceUserMessage(prompt string) string {
	return "Enhance this website prompt with more design details and structure:\n\n\"" + prompt + "\""
}

func avatarPrompt(prompt, style string) string {
	return fmt.Sprintf("Create a profile avatar image: %s. Style: %s. The image should be a square profile picture, centered, with a clean background. High quality, suitable for a user avatar.", prompt, style)
}

// validatePrompt проверяет промпт и возвращает его без пробелов по краям.
func validatePrompt(raw string, maxChars int) (string, error) {
	if raw == "" {
		return "", invalid(msgInvalidPrompt)
	}

	prompt := strings.TrimSpace(raw)
	if prompt == "" {
		return "", invalid(msgEmptyPrompt)
	}

	if utf8.RuneCountInString(prompt) > maxChars {
		return "", invalid(fmt.Sprintf("Prompt must be less than %d characters", maxChars))
	}

	return prompt, nil
}

// splitReply отделяет текст ответа от промпта генерации по маркеру.
func splitReply(content string) (response string, ready bool, generationPrompt string) {
	before, after, found := strings.Cut(content, readyMarker)
	if !found {
		return strings.TrimSpace(content), false, ""
	}

	return strings.TrimSpace(before), true, strings.TrimSpace(after)
}
