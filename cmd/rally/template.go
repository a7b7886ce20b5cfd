package main

const configTemplate = `# Rally Event Configuration
# =========================
# This file describes one event: when and where it is played, the match
# format, and who is playing.

event:
  name: "Thursday Doubles Night"
  date: "2026-05-07"
  start_time: "18:30"     # 24-hour clock
  courts: 3

  # Minutes between consecutive match start times. Defaults to 30 for a
  # league night and 10 for a tournament.
  # slot_minutes: 30

format:
  # "league" plays a round robin; "tournament" builds the first round of a
  # knockout bracket, with a bye for an odd team out.
  mode: league

  # singles, doubles (partners rotate) or mixed (one man and one woman per side)
  match_type: doubles

  # "randomized" shuffles partners; "experience_balanced" pairs the least
  # experienced player with the closest compatible partner.
  pairing: randomized
  rotate_partners: false  # mixed + randomized: team every man with every woman

  games_per_player: 3     # target matches for everyone
  max_consecutive: 3      # nobody plays this many matches in a row
  max_repeats: 2          # the same matchup at most this often
  strict_no_repeats: false
  max_passes: 10          # pool refills before the scheduler gives up
  attempts: 20            # independent shuffles; the best schedule wins

  # Fix the seed to get the same schedule every run. RALLY_SEED overrides it.
  # seed: 42

# Participants. Experience is 0 to 10 and only used by experience_balanced
# pairing; 0 means unknown.
roster:
  - name: Ana
    sex: F
    experience: 7
  - name: Ben
    sex: M
    experience: 3
  - name: Cho
    sex: F
    experience: 5
  - name: Dev
    sex: M
    experience: 8

# More participants can be listed in a text file, one per line:
#   "Kim Min-ji" F 6
#   Lee M 4
# roster_file: players.txt
`
