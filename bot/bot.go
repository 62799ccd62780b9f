package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oaksmc/ranktiers-bot/common"
	"github.com/oaksmc/ranktiers-bot/ledger"
	"github.com/oaksmc/ranktiers-bot/links"
	"github.com/oaksmc/ranktiers-bot/lookup"
	"go.uber.org/zap"
)

type TierBot struct {
	GuildID      string
	LogChannelID string
	Logger       *zap.SugaredLogger
	Discord      *discordgo.Session
	Links        *links.Store
	Ledger       *ledger.Repository
	Lookup       *lookup.Service
	TierUpdates  chan common.TierUpdateNotification
	startTime    time.Time
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "add-tier",
		Description: "Add or update a player's tier, kit, and points.",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "username", Description: "Minecraft username", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "kit", Description: "Kit (Sword, Axe...)", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "tier", Description: "Tier code (HT1, LT3...)", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "points", Description: "Points", Required: true},
		},
	},
	{
		Name:        "link-mc",
		Description: "Link your Discord account with Minecraft username.",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "username", Description: "Minecraft username", Required: true},
		},
	},
	{
		Name:        "unlink-mc",
		Description: "Unlink your Minecraft account from your Discord account.",
	},
	{
		Name:        "whois",
		Description: "Look up a linked account.",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Discord user", Required: false},
			{Type: discordgo.ApplicationCommandOptionString, Name: "username", Description: "Minecraft username", Required: false},
		},
	},
	{
		Name:        "uptime",
		Description: "Shows bot uptime.",
	},
}

func NewTierBot(botToken, guildID, logChannelID string, logger *zap.SugaredLogger, linkStore *links.Store, repo *ledger.Repository, lookupSvc *lookup.Service, tierUpdates chan common.TierUpdateNotification) *TierBot {
	var bot TierBot
	bot.GuildID = guildID
	bot.LogChannelID = logChannelID
	bot.Logger = logger
	bot.Links = linkStore
	bot.Ledger = repo
	bot.Lookup = lookupSvc
	bot.TierUpdates = tierUpdates
	bot.startTime = time.Now()

	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		bot.Logger.Errorf("error creating Discord session: %s", err)
		return nil
	}
	bot.Discord = dg

	dg.AddHandler(bot.onReady)
	dg.AddHandler(bot.onInteraction)
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages

	err = dg.Open()
	if err != nil {
		bot.Logger.Errorf("error opening connection: %s", err)
		return nil
	}

	return &bot
}

func (bot *TierBot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	bot.Logger.Infof("logged in as %s", r.User.String())

	if err := s.UpdateGameStatus(0, "ranktiers.com"); err != nil {
		bot.Logger.Errorf("error setting presence: %s", err)
	}
	_, err := s.ApplicationCommandBulkOverwrite(r.User.ID, bot.GuildID, commands)
	if err != nil {
		bot.Logger.Errorf("error registering commands: %s", err)
		return
	}
	bot.Logger.Infof("commands registered + status set")
}

// StartBot consumes tier updates and posts the embed to the log channel.
func (bot *TierBot) StartBot() {
	for {
		select {
		case update := <-bot.TierUpdates:
			bot.Logger.Infof("sending tier update <%s %s %s (%d pts)> on channel '%s'", update.Username, update.Kit, update.TierCode, update.Points, bot.LogChannelID)
			embed := &discordgo.MessageEmbed{
				Title:     fmt.Sprintf("Tier Updated: %s", update.Username),
				Thumbnail: &discordgo.MessageEmbedThumbnail{URL: common.SkinHeadURL(update.Username)},
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Username", Value: update.Username, Inline: true},
					{Name: "Kit", Value: update.Kit, Inline: true},
					{Name: "Tier", Value: update.TierCode, Inline: true},
					{Name: "Points", Value: fmt.Sprintf("%d", update.Points), Inline: true},
				},
				Color:     0x57f287,
				Timestamp: time.Now().Format(time.RFC3339),
			}
			msg, err := bot.Discord.ChannelMessageSendEmbed(bot.LogChannelID, embed)
			if err != nil {
				bot.Logger.Errorf("error sending tier update embed: %s", err)
				continue
			}
			bot.Discord.MessageReactionAdd(bot.LogChannelID, msg.ID, "✅")
			bot.Discord.MessageReactionAdd(bot.LogChannelID, msg.ID, "❌")
		}
	}
}

func (bot *TierBot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "add-tier":
		bot.handleAddTier(s, i)
	case "link-mc":
		bot.handleLink(s, i)
	case "unlink-mc":
		bot.handleUnlink(s, i)
	case "whois":
		bot.handleWhois(s, i)
	case "uptime":
		bot.handleUptime(s, i)
	}
}

func (bot *TierBot) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		bot.Logger.Errorf("error sending reply: %s", err)
	}
}

func (bot *TierBot) replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		bot.Logger.Errorf("error sending reply: %s", err)
	}
}

func (bot *TierBot) replyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		bot.Logger.Errorf("error sending embed reply: %s", err)
	}
}

func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}
	return opts
}

func (bot *TierBot) handleLink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := commandOptions(i)
	username := opts["username"].StringValue()
	discordID := i.Member.User.ID

	_, err := bot.Links.CreateLink(username, discordID)
	var dup *links.DuplicateLinkError
	if errors.As(err, &dup) {
		if dup.IdentityID == discordID {
			bot.replyEphemeral(s, i, fmt.Sprintf("You're already linked to **%s**.", dup.GameName))
		} else {
			bot.replyEphemeral(s, i, fmt.Sprintf("**%s** is already linked.", username))
		}
		return
	}
	if err != nil {
		bot.Logger.Errorf("error creating link: %s", err)
		bot.replyEphemeral(s, i, "Something went wrong saving your link, try again.")
		return
	}
	bot.reply(s, i, fmt.Sprintf("Linked **%s** to your Discord account!", username))
}

func (bot *TierBot) handleUnlink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	discordID := i.Member.User.ID

	gameName, err := bot.Links.RemoveLink(discordID)
	if errors.Is(err, links.ErrNotLinked) {
		bot.replyEphemeral(s, i, "You don't have a linked Minecraft account.")
		return
	}
	if err != nil {
		bot.Logger.Errorf("error removing link: %s", err)
		bot.replyEphemeral(s, i, "Something went wrong removing your link, try again.")
		return
	}
	bot.reply(s, i, fmt.Sprintf("Unlinked **%s** from your Discord account!", gameName))
}

func (bot *TierBot) handleWhois(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := commandOptions(i)

	var username, identityID string
	if opt, ok := opts["username"]; ok {
		username = opt.StringValue()
	}
	if opt, ok := opts["user"]; ok {
		identityID = opt.UserValue(s).ID
	}

	res, err := bot.Lookup.Whois(username, identityID)
	if errors.Is(err, lookup.ErrInvalidQuery) {
		bot.replyEphemeral(s, i, "Provide a user or a MC username.")
		return
	}
	if errors.Is(err, links.ErrNotLinked) {
		bot.replyEphemeral(s, i, "No link found for that account.")
		return
	}
	if err != nil {
		bot.Logger.Errorf("error resolving whois: %s", err)
		bot.replyEphemeral(s, i, "Lookup failed, try again.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "Whois Lookup",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Minecraft", Value: res.GameName},
			{Name: "Discord", Value: fmt.Sprintf("<@%s>", res.IdentityID)},
		},
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: common.SkinHeadURL(res.GameName)},
		Color:     0x3498db,
	}
	bot.replyEmbed(s, i, embed)
}

func (bot *TierBot) handleAddTier(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		bot.replyEphemeral(s, i, "Admin only.")
		return
	}

	opts := commandOptions(i)
	username := opts["username"].StringValue()
	kit := opts["kit"].StringValue()
	tier := opts["tier"].StringValue()
	points := int(opts["points"].IntValue())

	record, err := bot.Ledger.UpsertTier(username, kit, tier, points)
	if errors.Is(err, ledger.ErrKitNotFound) {
		bot.replyEphemeral(s, i, fmt.Sprintf("Kit **%s** not found.", kit))
		return
	}
	if err != nil {
		bot.Logger.Errorf("error upserting tier: %s", err)
		bot.replyEphemeral(s, i, "Something went wrong saving the tier, try again.")
		return
	}

	bot.TierUpdates <- common.TierUpdateNotification{
		Username: username,
		Kit:      kit,
		TierCode: record.TierCode,
		Points:   record.Points,
	}
	bot.replyEphemeral(s, i, fmt.Sprintf("Updated **%s** -> **%s %s (%d pts)**.\nEmbed sent to log channel.", username, kit, tier, points))
}

func (bot *TierBot) handleUptime(s *discordgo.Session, i *discordgo.InteractionCreate) {
	elapsed := time.Since(bot.startTime)
	days := int(elapsed.Hours()) / 24
	hours := int(elapsed.Hours()) % 24
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60

	embed := &discordgo.MessageEmbed{
		Title: "Bot Uptime",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uptime", Value: fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)},
			{Name: "Started", Value: fmt.Sprintf("<t:%d:R>", bot.startTime.Unix())},
		},
		Color: 0x1abc9c,
	}
	bot.replyEmbed(s, i, embed)
}
